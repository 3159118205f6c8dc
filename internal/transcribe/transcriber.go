// Package transcribe converts voice memos to text through a Whisper-compatible
// speech-to-text API and backfills missing transcriptions.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Sentinel errors for transcription.
var (
	// ErrNotConfigured is returned when no API key is configured.
	ErrNotConfigured = errors.New("API key do OpenAI não configurada")
	// ErrEmptyAudio is returned when the audio payload is empty.
	ErrEmptyAudio = errors.New("nenhum arquivo de áudio enviado")
)

// Transcriber is the interface for speech-to-text engines.
type Transcriber interface {
	// Transcribe converts an audio file to text.
	Transcribe(ctx context.Context, audio Audio) (Result, error)
}

// Audio is an audio file to transcribe.
type Audio struct {
	Body     io.Reader
	Filename string
	MimeType string
	// Language is an ISO-639-1 hint; empty uses the client default.
	Language string
}

// Result holds the transcription result.
type Result struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// APIError is returned when the speech-to-text API answers with a non-2xx status.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Erro Whisper API: %d", e.Status)
}
