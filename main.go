// Package main provides the Diário de Bordo service: a shop-floor diary for
// scrap labels with voice memo transcription, media uploads, FMEA dashboards
// and a live audio level meter.
//
// Usage:
//
//	diario-bordo [-config path/to/config.json] [-import-refugos refugos.json]
//
// If -config is not specified, the service looks for config.json in the same
// directory as the binary. The config format follows the file extension
// (.json, .yaml or .toml).
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/oszuidwest/diario-bordo/internal/config"
	"github.com/oszuidwest/diario-bordo/internal/eventlog"
	"github.com/oszuidwest/diario-bordo/internal/media"
	"github.com/oszuidwest/diario-bordo/internal/notify"
	"github.com/oszuidwest/diario-bordo/internal/store"
	"github.com/oszuidwest/diario-bordo/internal/transcribe"
	"github.com/oszuidwest/diario-bordo/internal/types"
	"github.com/oszuidwest/diario-bordo/internal/update"
	"github.com/oszuidwest/diario-bordo/internal/util"
)

// Release checks start after the service is up and repeat daily.
const (
	updateCheckDelay    = 30 * time.Second
	updateCheckInterval = 24 * time.Hour
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	importPath := flag.String("import-refugos", "", "Import scrap records from a JSON file and exit")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	snap := cfg.Snapshot()

	closeLog := setupLogging(&snap)
	defer closeLog()
	slog.Info("using config file", "path", *configPath)

	st, err := store.Open(snap.DatabaseDSN)
	if err != nil {
		slog.Error("failed to open database", "dsn", snap.DatabaseDSN, "error", err)
		os.Exit(1)
	}
	defer util.SafeCloseFunc(st, "database")()

	if *importPath != "" {
		if err := importRefugosFile(context.Background(), st, *importPath); err != nil {
			slog.Error("import failed", "error", err)
			os.Exit(1)
		}
		return
	}

	events, err := eventlog.NewLogger(snap.EventLogPath, eventlog.Options{
		MaxSizeMB:  snap.LogMaxSizeMB,
		MaxBackups: snap.LogBackups,
	})
	if err != nil {
		slog.Error("failed to open event log", "path", snap.EventLogPath, "error", err)
		os.Exit(1)
	}
	defer util.SafeCloseFunc(events, "event log")()

	if err := util.CheckPathWritable(snap.UploadPath); err != nil {
		slog.Error("upload directory unusable", "path", snap.UploadPath, "error", err)
		os.Exit(1)
	}
	storage, err := media.NewStorage(snap.UploadPath, snap.UploadURLBase, snap.MaxMediaBytes)
	if err != nil {
		slog.Error("failed to initialize media storage", "error", err)
		os.Exit(1)
	}

	var mirror *media.Mirror
	if snap.HasS3() {
		mirror, err = media.NewMirror(&media.S3Config{
			Endpoint:        snap.S3Endpoint,
			Bucket:          snap.S3Bucket,
			Prefix:          snap.S3Prefix,
			AccessKeyID:     snap.S3AccessKeyID,
			SecretAccessKey: snap.S3SecretAccessKey,
		}, events)
		if err != nil {
			slog.Error("failed to create S3 mirror", "error", err)
		} else {
			mirror.Start()
			slog.Info("S3 mirror enabled", "bucket", snap.S3Bucket)
		}
	}

	whisper := transcribe.NewWhisperClient(transcribe.WhisperConfig{
		URL:      snap.TranscriptionURL,
		APIKey:   snap.TranscriptionKey,
		Model:    snap.TranscriptionModel,
		Language: snap.TranscriptionLanguage,
		Timeout:  snap.TranscriptionTimeout,
	})
	if !whisper.Configured() {
		slog.Warn("transcription disabled: no API key configured")
	}
	backfill := transcribe.NewBackfiller(st, whisper,
		transcribe.StorageOpener(storage, &http.Client{Timeout: snap.TranscriptionTimeout}),
		events, snap.BatchConcurrency)

	notifier := notify.NewEventoNotifier(cfg)
	updates := update.NewChecker(Version, nil, "")
	updateCtx, stopUpdates := context.WithCancel(context.Background())
	go updates.Run(updateCtx, updateCheckDelay, updateCheckInterval)

	srv := NewServer(cfg, Services{
		Store:       st,
		Labels:      store.NewLabelCache(st, snap.LabelCacheSize, snap.LabelCacheTTL),
		Media:       storage,
		Mirror:      mirror,
		Transcriber: whisper,
		Backfill:    backfill,
		Events:      events,
		Notifier:    notifier,
		Updates:     updates,
	})

	httpServer := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)
	<-sigChan

	slog.Info("shutting down")

	stopUpdates()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if mirror != nil {
		mirror.Stop()
	}

	done := make(chan struct{})
	go func() {
		notifier.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(types.ShutdownTimeout):
		slog.Warn("pending notifications abandoned")
	}

	slog.Info("shutdown complete")
}

// setupLogging installs the default slog logger. Output goes to stderr and,
// when a log path is configured, to a size-rotated file.
func setupLogging(snap *config.Snapshot) func() {
	level := slog.LevelInfo
	if snap.Debug {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	closeFn := func() {}
	if snap.LogPath != "" {
		file := &lumberjack.Logger{
			Filename:   snap.LogPath,
			MaxSize:    snap.LogMaxSizeMB,
			MaxBackups: snap.LogBackups,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stderr, file)
		closeFn = util.SafeCloseFunc(file, "log file")
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return closeFn
}
