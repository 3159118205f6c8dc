// Package eventlog provides the audit log of the diary service.
// It records diary, transcription and media upload events in a single
// JSON lines file that is rotated by size.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// EventType represents the type of event.
type EventType string

// Diary event types.
const (
	EventoCreated   EventType = "evento_created"
	EventoFinalized EventType = "evento_finalized"
	EventoDeleted   EventType = "evento_deleted"
	MidiaUploaded   EventType = "midia_uploaded"
)

// Transcription event types.
const (
	TranscriptionCompleted EventType = "transcription_completed"
	TranscriptionFailed    EventType = "transcription_failed"
)

// Upload event types for the S3 mirror.
const (
	UploadQueued    EventType = "upload_queued"
	UploadCompleted EventType = "upload_completed"
	UploadFailed    EventType = "upload_failed"
	UploadRetry     EventType = "upload_retry"
	UploadAbandoned EventType = "upload_abandoned"
)

// Event represents a single log entry with type-specific details.
type Event struct {
	Timestamp time.Time       `json:"ts"`
	Type      EventType       `json:"type"`
	EventoID  string          `json:"evento_id,omitempty"`
	Message   string          `json:"msg,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// EventoDetails contains diary event details.
type EventoDetails struct {
	Etiqueta string `json:"etiqueta,omitempty"`
	MidiaID  string `json:"midia_id,omitempty"`
	Tipo     string `json:"tipo,omitempty"`
	URL      string `json:"url,omitempty"`
	Files    int    `json:"files,omitempty"`
	Error    string `json:"error,omitempty"`
}

// UploadDetails contains S3 mirror details.
type UploadDetails struct {
	Filename   string `json:"filename,omitempty"`
	S3Key      string `json:"s3_key,omitempty"`
	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry,omitempty"`
}

// Options configures log rotation.
type Options struct {
	MaxSizeMB  int
	MaxBackups int
}

// Logger writes events to a rotated JSON lines file.
// A nil *Logger discards all events.
type Logger struct {
	mu       sync.Mutex
	filePath string
	out      *lumberjack.Logger
}

// NewLogger creates a new event logger at the specified path.
func NewLogger(filePath string, opts Options) (*Logger, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	return &Logger{
		filePath: filePath,
		out: &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		},
	}, nil
}

// Log writes an event to the log file.
func (l *Logger) Log(eventType EventType, eventoID, message string, details any) error {
	if l == nil {
		return nil
	}

	event := Event{
		Timestamp: time.Now(),
		Type:      eventType,
		EventoID:  eventoID,
		Message:   message,
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal event details: %w", err)
		}
		event.Details = raw
	}

	line, err := json.Marshal(&event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.out.Write(line)
	return err
}

// LogEvento logs a diary event.
func (l *Logger) LogEvento(eventType EventType, eventoID string, d EventoDetails) error {
	return l.Log(eventType, eventoID, "", &d)
}

// LogUpload logs an S3 mirror event.
func (l *Logger) LogUpload(eventType EventType, d UploadDetails) error {
	return l.Log(eventType, "", "", &d)
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Close()
}

// Path returns the path to the log file.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.filePath
}

// TypeFilter specifies which event types to include when reading.
type TypeFilter string

// Filter constants for ReadLast.
const (
	FilterAll           TypeFilter = ""
	FilterEvento        TypeFilter = "evento"
	FilterTranscription TypeFilter = "transcription"
	FilterUpload        TypeFilter = "upload"
)

// ParseFilter converts a query value to a TypeFilter.
func ParseFilter(s string) (TypeFilter, bool) {
	switch f := TypeFilter(s); f {
	case FilterAll, FilterEvento, FilterTranscription, FilterUpload:
		return f, true
	default:
		return FilterAll, false
	}
}

// Matches reports whether an event type passes the filter.
func (f TypeFilter) Matches(t EventType) bool {
	switch f {
	case FilterEvento:
		return IsEventoEvent(t)
	case FilterTranscription:
		return IsTranscriptionEvent(t)
	case FilterUpload:
		return IsUploadEvent(t)
	default:
		return true
	}
}

// MaxReadLimit is the maximum number of events that can be read at once.
const MaxReadLimit = 500

// ReadLast reads events from the current log file with pagination support.
// Returns up to n events starting from offset, filtered by type, newest
// first, and whether older matching events remain.
func ReadLast(filePath string, n, offset int, filter TypeFilter) ([]Event, bool, error) {
	n = min(n, MaxReadLimit)
	if n <= 0 {
		return []Event{}, false, nil
	}
	offset = max(offset, 0)

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, false, nil
		}
		return nil, false, err
	}
	defer file.Close() //nolint:errcheck // Read-only operation, close error not critical

	var lines [][]byte
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, append([]byte(nil), scanner.Bytes()...))
	}
	if err := scanner.Err(); err != nil {
		return nil, false, err
	}

	events := make([]Event, 0, n)
	matched := 0
	for i := len(lines) - 1; i >= 0; i-- {
		var event Event
		if err := json.Unmarshal(lines[i], &event); err != nil {
			continue // Skip malformed lines
		}
		if !filter.Matches(event.Type) {
			continue
		}

		matched++
		if matched <= offset {
			continue
		}
		if len(events) == n {
			return events, true, nil
		}
		events = append(events, event)
	}

	return events, false, nil
}

// IsEventoEvent returns true if the event type is a diary event.
func IsEventoEvent(t EventType) bool {
	return t == EventoCreated || t == EventoFinalized || t == EventoDeleted || t == MidiaUploaded
}

// IsTranscriptionEvent returns true if the event type is a transcription event.
func IsTranscriptionEvent(t EventType) bool {
	return t == TranscriptionCompleted || t == TranscriptionFailed
}

// IsUploadEvent returns true if the event type is an S3 mirror event.
func IsUploadEvent(t EventType) bool {
	return t == UploadQueued || t == UploadCompleted || t == UploadFailed ||
		t == UploadRetry || t == UploadAbandoned
}
