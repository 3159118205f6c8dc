package util

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{-time.Second, "0s"},
		{45*time.Second + 900*time.Millisecond, "45s"},
		{154 * time.Second, "2m 34s"},
		{83 * time.Minute, "1h 23m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestBackoff(t *testing.T) {
	b := NewBackoff(time.Second, 5*time.Second)
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}
	b.Reset()
	if got := b.Next(); got != time.Second {
		t.Errorf("Next() after Reset = %v, want 1s", got)
	}
}

func TestFormatHumanTime(t *testing.T) {
	if got := FormatHumanTime(""); got != "unknown" {
		t.Errorf("FormatHumanTime(\"\") = %q", got)
	}
	if got := FormatHumanTime("garbage"); got != "garbage" {
		t.Errorf("FormatHumanTime(garbage) = %q", got)
	}
	ts := time.Date(2025, 3, 4, 5, 6, 0, 0, time.UTC)
	if got, want := FormatHumanTime(ts.Format(time.RFC3339)), ts.Local().Format(humanTimeFormat); got != want {
		t.Errorf("FormatHumanTime() = %q, want %q", got, want)
	}
}

func TestCheckPathWritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := CheckPathWritable(dir); err != nil {
		t.Fatalf("CheckPathWritable() error = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 0 {
		t.Errorf("test file left behind: %v, %v", entries, err)
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CheckPathWritable(file); !errors.Is(err, ErrPathNotWritable) {
		t.Errorf("CheckPathWritable(file) error = %v, want ErrPathNotWritable", err)
	}
}

func TestWrapError(t *testing.T) {
	base := errors.New("boom")
	err := WrapError("open store", base)
	if !errors.Is(err, base) || err.Error() != "failed to open store: boom" {
		t.Errorf("WrapError() = %v", err)
	}
}

func TestIsConfigured(t *testing.T) {
	if !IsConfigured("a", "b") || IsConfigured("a", "") {
		t.Error("IsConfigured mismatch")
	}
}
