package transcribe

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"golang.org/x/oauth2"

	"github.com/oszuidwest/diario-bordo/internal/util"
)

// Whisper defaults.
const (
	DefaultURL      = "https://api.openai.com/v1/audio/transcriptions"
	DefaultModel    = "whisper-1"
	DefaultLanguage = "pt"
	defaultTimeout  = 120 * time.Second
	defaultFilename = "audio.webm"
	maxErrorBody    = 4096
)

// WhisperConfig configures the Whisper client.
type WhisperConfig struct {
	URL      string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

// WhisperClient implements Transcriber against the OpenAI audio API.
type WhisperClient struct {
	url        string
	model      string
	language   string
	configured bool
	httpClient *http.Client
}

// NewWhisperClient creates a client. A missing API key yields a client that
// fails every call with ErrNotConfigured.
func NewWhisperClient(cfg WhisperConfig) *WhisperClient {
	baseClient := &http.Client{Timeout: cmp.Or(cfg.Timeout, defaultTimeout)}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, baseClient)
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.APIKey,
		TokenType:   "Bearer",
	})

	return &WhisperClient{
		url:        cmp.Or(cfg.URL, DefaultURL),
		model:      cmp.Or(cfg.Model, DefaultModel),
		language:   cmp.Or(cfg.Language, DefaultLanguage),
		configured: cfg.APIKey != "",
		httpClient: oauth2.NewClient(ctx, ts),
	}
}

// Configured reports whether an API key is set.
func (c *WhisperClient) Configured() bool {
	return c.configured
}

type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// Transcribe uploads the audio as multipart form data and returns the text.
func (c *WhisperClient) Transcribe(ctx context.Context, audio Audio) (Result, error) {
	if !c.configured {
		return Result{}, ErrNotConfigured
	}
	if audio.Body == nil {
		return Result{}, ErrEmptyAudio
	}

	body, contentType, err := c.buildForm(audio)
	if err != nil {
		return Result{}, err
	}
	if body.Len() == 0 {
		return Result{}, ErrEmptyAudio
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return Result{}, util.WrapError("create transcription request", err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, util.WrapError("send transcription request", err)
	}
	defer util.SafeCloseFunc(resp.Body, "transcription response body")()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Result{}, &APIError{Status: resp.StatusCode, Body: string(data)}
	}

	var wr whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return Result{}, util.WrapError("decode transcription response", err)
	}

	slog.Debug("transcription complete", "duration", time.Since(start), "text_length", len(wr.Text))
	return Result{Text: wr.Text, Language: wr.Language, Duration: wr.Duration}, nil
}

// buildForm writes the multipart body: file, model and language.
func (c *WhisperClient) buildForm(audio Audio) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := cmp.Or(audio.Filename, defaultFilename)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", cmp.Or(audio.MimeType, "application/octet-stream"))
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", util.WrapError("create form file", err)
	}
	n, err := io.Copy(part, audio.Body)
	if err != nil {
		return nil, "", util.WrapError("write audio data", err)
	}
	if n == 0 {
		return &bytes.Buffer{}, "", nil
	}

	if err := w.WriteField("model", c.model); err != nil {
		return nil, "", util.WrapError("write model field", err)
	}
	if err := w.WriteField("language", cmp.Or(audio.Language, c.language)); err != nil {
		return nil, "", util.WrapError("write language field", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", util.WrapError("close multipart writer", err)
	}

	return &buf, w.FormDataContentType(), nil
}
