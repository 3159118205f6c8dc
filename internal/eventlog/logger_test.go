package eventlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := NewLogger(filepath.Join(t.TempDir(), "logs", "events.jsonl"), Options{MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestReadLastNewestFirst(t *testing.T) {
	l := newTestLogger(t)

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(l.LogEvento(EventoCreated, "e1", EventoDetails{Etiqueta: "A"}))
	must(l.LogUpload(UploadQueued, UploadDetails{Filename: "a.webm"}))
	must(l.LogEvento(EventoCreated, "e2", EventoDetails{Etiqueta: "B"}))
	must(l.Log(TranscriptionCompleted, "e2", "ok", nil))
	must(l.LogEvento(EventoFinalized, "e2", EventoDetails{}))

	events, more, err := ReadLast(l.Path(), 2, 0, FilterAll)
	if err != nil {
		t.Fatalf("ReadLast() error = %v", err)
	}
	if len(events) != 2 || events[0].Type != EventoFinalized || events[1].Type != TranscriptionCompleted {
		t.Fatalf("events = %+v", events)
	}
	if !more {
		t.Error("hasMore = false, want true")
	}

	events, more, err = ReadLast(l.Path(), 10, 1, FilterEvento)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].EventoID != "e2" || events[1].EventoID != "e1" || more {
		t.Errorf("filtered events = %+v, more = %v", events, more)
	}

	var d EventoDetails
	if err := json.Unmarshal(events[1].Details, &d); err != nil || d.Etiqueta != "A" {
		t.Errorf("details = %s, err = %v", events[1].Details, err)
	}

	events, _, err = ReadLast(l.Path(), 10, 0, FilterUpload)
	if err != nil || len(events) != 1 {
		t.Errorf("upload events = %+v, err = %v", events, err)
	}
}

func TestReadLastMissingFile(t *testing.T) {
	events, more, err := ReadLast(filepath.Join(t.TempDir(), "none.jsonl"), 10, 0, FilterAll)
	if err != nil || len(events) != 0 || more {
		t.Errorf("ReadLast() = %v, %v, %v", events, more, err)
	}
}

func TestReadLastSkipsMalformedLines(t *testing.T) {
	l := newTestLogger(t)
	if err := l.LogEvento(EventoDeleted, "e1", EventoDetails{Files: 2}); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(l.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("not json\n")
	_ = f.Close()

	events, _, err := ReadLast(l.Path(), 10, 0, FilterAll)
	if err != nil || len(events) != 1 {
		t.Errorf("events = %+v, err = %v", events, err)
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var l *Logger
	if err := l.LogEvento(EventoCreated, "e1", EventoDetails{}); err != nil {
		t.Errorf("nil Log() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}

func TestParseFilter(t *testing.T) {
	if f, ok := ParseFilter("upload"); !ok || f != FilterUpload {
		t.Errorf("ParseFilter(upload) = %q, %v", f, ok)
	}
	if _, ok := ParseFilter("stream"); ok {
		t.Error("ParseFilter accepted unknown filter")
	}
}
