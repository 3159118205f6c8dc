package transcribe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWhisperTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}
		if got := r.FormValue("model"); got != DefaultModel {
			t.Errorf("model = %q", got)
		}
		if got := r.FormValue("language"); got != "pt" {
			t.Errorf("language = %q", got)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if string(data) != "RIFFdata" || hdr.Filename != "memo.wav" {
			t.Errorf("file = %q (%s)", data, hdr.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"peça com rebarba"}`)
	}))
	defer srv.Close()

	c := NewWhisperClient(WhisperConfig{URL: srv.URL, APIKey: "sk-test"})
	res, err := c.Transcribe(context.Background(), Audio{
		Body:     strings.NewReader("RIFFdata"),
		Filename: "memo.wav",
		MimeType: "audio/wav",
	})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if res.Text != "peça com rebarba" {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestWhisperLanguageOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language = %q, want en", got)
		}
		_, _ = io.WriteString(w, `{"text":"ok"}`)
	}))
	defer srv.Close()

	c := NewWhisperClient(WhisperConfig{URL: srv.URL, APIKey: "k"})
	if _, err := c.Transcribe(context.Background(), Audio{Body: strings.NewReader("x"), Language: "en"}); err != nil {
		t.Fatal(err)
	}
}

func TestWhisperAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"invalid file"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewWhisperClient(WhisperConfig{URL: srv.URL, APIKey: "k"})
	_, err := c.Transcribe(context.Background(), Audio{Body: strings.NewReader("x")})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest || !strings.Contains(apiErr.Body, "invalid file") {
		t.Errorf("APIError = %+v", apiErr)
	}
	if apiErr.Error() != "Erro Whisper API: 400" {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}

func TestWhisperNotConfigured(t *testing.T) {
	c := NewWhisperClient(WhisperConfig{})
	if c.Configured() {
		t.Error("Configured() = true without key")
	}
	_, err := c.Transcribe(context.Background(), Audio{Body: strings.NewReader("x")})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}

func TestWhisperEmptyAudio(t *testing.T) {
	c := NewWhisperClient(WhisperConfig{URL: "http://127.0.0.1:1", APIKey: "k"})
	for _, a := range []Audio{{}, {Body: strings.NewReader("")}} {
		if _, err := c.Transcribe(context.Background(), a); !errors.Is(err, ErrEmptyAudio) {
			t.Errorf("error = %v, want ErrEmptyAudio", err)
		}
	}
}
