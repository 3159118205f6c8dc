package media

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStorage(t *testing.T, maxBytes int64) *Storage {
	t.Helper()
	s, err := NewStorage(t.TempDir(), "http://localhost:3001/uploads/", maxBytes)
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return s
}

func TestNewStorageCreatesDirectories(t *testing.T) {
	s := newTestStorage(t, 0)
	for _, dir := range []string{DirAudio, DirFotos, DirOutros} {
		if fi, err := os.Stat(filepath.Join(s.Root(), dir)); err != nil || !fi.IsDir() {
			t.Errorf("directory %s missing: %v", dir, err)
		}
	}
}

func TestSubdirFor(t *testing.T) {
	tests := map[string]string{
		"AUDIO_DETALHE":    DirAudio,
		"AUDIO_OBSERVACAO": DirAudio,
		"FOTO":             DirFotos,
		"FOTO_EXTRA":       DirOutros,
		"":                 DirOutros,
	}
	for tipo, want := range tests {
		if got := SubdirFor(tipo); got != want {
			t.Errorf("SubdirFor(%q) = %q, want %q", tipo, got, want)
		}
	}
}

func TestExtFor(t *testing.T) {
	tests := []struct {
		name, mime, want string
	}{
		{"memo.ogg", "audio/webm", ".ogg"},
		{"blob", "audio/webm;codecs=opus", ".webm"},
		{"", "audio/mpeg", ".mp3"},
		{"", "audio/mp4", ".m4a"},
		{"", "image/jpeg", ".jpg"},
		{"", "image/gif", ".bin"},
	}
	for _, tt := range tests {
		if got := ExtFor(tt.name, tt.mime); got != tt.want {
			t.Errorf("ExtFor(%q, %q) = %q, want %q", tt.name, tt.mime, got, tt.want)
		}
	}
}

func TestSave(t *testing.T) {
	s := newTestStorage(t, 1024)

	f, err := s.Save(strings.NewReader("voice"), "AUDIO_DETALHE", "", "audio/webm")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if f.Filename != "AUDIO_DETALHE_1700000000123.webm" {
		t.Errorf("Filename = %q", f.Filename)
	}
	if f.URL != "http://localhost:3001/uploads/audio/AUDIO_DETALHE_1700000000123.webm" {
		t.Errorf("URL = %q", f.URL)
	}
	if f.Size != 5 {
		t.Errorf("Size = %d, want 5", f.Size)
	}
	data, err := os.ReadFile(f.Path)
	if err != nil || string(data) != "voice" {
		t.Errorf("stored content = %q, err = %v", data, err)
	}

	// Same millisecond, same kind.
	g, err := s.Save(strings.NewReader("again"), "AUDIO_DETALHE", "", "audio/webm")
	if err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	if g.Path == f.Path {
		t.Error("colliding upload overwrote the first file")
	}

	p, err := s.Save(strings.NewReader("img"), "", "photo.png", "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if p.Subdir != DirOutros || !strings.HasPrefix(p.Filename, "file_") {
		t.Errorf("untyped upload stored as %s/%s", p.Subdir, p.Filename)
	}
}

func TestSaveRejects(t *testing.T) {
	s := newTestStorage(t, 4)

	if _, err := s.Save(strings.NewReader("x"), "FOTO", "doc.pdf", "application/pdf"); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("pdf: error = %v, want ErrUnsupportedType", err)
	}

	if _, err := s.Save(strings.NewReader("too long"), "FOTO", "", "image/png"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized: error = %v, want ErrTooLarge", err)
	}
	entries, _ := os.ReadDir(filepath.Join(s.Root(), DirFotos))
	if len(entries) != 0 {
		t.Errorf("oversized file left behind: %v", entries)
	}
}

func TestRemove(t *testing.T) {
	s := newTestStorage(t, 0)
	f, err := s.Save(strings.NewReader("x"), "FOTO", "", "image/png")
	if err != nil {
		t.Fatal(err)
	}

	outside := filepath.Join(t.TempDir(), "keep.txt")
	if err := os.WriteFile(outside, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	removed := s.Remove([]string{f.Path, f.Path, outside})
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Error("file outside upload root was removed")
	}
	if _, err := s.Open(outside); err == nil {
		t.Error("Open() accepted a path outside the upload root")
	}
}
