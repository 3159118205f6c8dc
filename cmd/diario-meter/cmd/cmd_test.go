package cmd

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		cfgFile, runDevice, runSave = "", "", false
		versionCheck, releasesURL = false, ""
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestDevicesCommand(t *testing.T) {
	out, err := execute(t, "devices")
	if err != nil {
		t.Fatalf("devices error = %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Error("devices printed nothing")
	}
}

func TestRunSaveRequiresConfig(t *testing.T) {
	_, err := execute(t, "run", "--save", "--device", "hw:1")
	if !errors.Is(err, errSaveWithoutConfig) {
		t.Errorf("error = %v, want errSaveWithoutConfig", err)
	}
}

func TestLoadConfig(t *testing.T) {
	cfgFile = ""
	cfg, err := loadConfig()
	if err != nil || cfg.Snapshot().MeterBars == 0 {
		t.Fatalf("defaults: %v", err)
	}

	cfgFile = filepath.Join(t.TempDir(), "config.toml")
	t.Cleanup(func() { cfgFile = "" })
	if err := os.WriteFile(cfgFile, []byte("[meter]\nbars = 32\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if got := cfg.Snapshot().MeterBars; got != 32 {
		t.Errorf("MeterBars = %d, want 32", got)
	}
	if err := cfg.SetAudioInput("hw:2"); err != nil {
		t.Fatal(err)
	}
	if got := cfg.Snapshot().AudioInput; got != "hw:2" {
		t.Errorf("AudioInput = %q", got)
	}
}

func TestVersionCheck(t *testing.T) {
	releases := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name":"v0.9.0"}`))
	}))
	defer releases.Close()

	Version = "0.8.1"
	t.Cleanup(func() { Version = "dev" })
	releasesURL = releases.URL

	out, err := execute(t, "version", "--check")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, "diario-meter 0.8.1") || !strings.Contains(out, "Nova versão disponível: 0.9.0") {
		t.Errorf("output = %q", out)
	}
}
