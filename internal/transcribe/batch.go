package transcribe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/oszuidwest/diario-bordo/internal/eventlog"
	"github.com/oszuidwest/diario-bordo/internal/media"
	"github.com/oszuidwest/diario-bordo/internal/types"
	"github.com/oszuidwest/diario-bordo/internal/util"
)

// Batch defaults.
const (
	DefaultBatchLimit       = 50
	DefaultBatchConcurrency = 3
)

// Result columns reported by the batch backfill.
const (
	ColumnDetalhe    = "transcricao_detalhe"
	ColumnObservacao = "transcricao_observacao"
)

// EventoStore is the persistence needed by the backfill.
type EventoStore interface {
	PendingTranscriptions(ctx context.Context, limit int) ([]types.Evento, error)
	UpdateTranscricao(ctx context.Context, id string, detalhe, observacao types.OptionalString) (*types.Evento, error)
}

// Opener opens the audio content of a media record.
type Opener func(ctx context.Context, m types.Midia) (io.ReadCloser, error)

// StorageOpener reads media from local storage when a path is recorded and
// falls back to fetching the media URL.
func StorageOpener(storage *media.Storage, client *http.Client) Opener {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, m types.Midia) (io.ReadCloser, error) {
		if m.ArquivoPath != "" {
			return storage.Open(m.ArquivoPath)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.ArquivoURL, http.NoBody)
		if err != nil {
			return nil, util.WrapError("create media request", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, util.WrapError("fetch media", err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("fetch media: status %d", resp.StatusCode)
		}
		return resp.Body, nil
	}
}

// Backfiller transcribes the stored voice memos of events that miss a
// transcription.
type Backfiller struct {
	store       EventoStore
	transcriber Transcriber
	open        Opener
	events      *eventlog.Logger
	concurrency int
}

// NewBackfiller creates a backfiller. Events may be nil.
func NewBackfiller(store EventoStore, transcriber Transcriber, open Opener, events *eventlog.Logger, concurrency int) *Backfiller {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	return &Backfiller{
		store:       store,
		transcriber: transcriber,
		open:        open,
		events:      events,
		concurrency: concurrency,
	}
}

// Run processes up to limit pending events. Per-event failures are reported
// in the result and do not abort the batch. Events without audio to
// transcribe are left out of the result.
func (b *Backfiller) Run(ctx context.Context, limit int) (*types.BatchResult, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}

	pending, err := b.store.PendingTranscriptions(ctx, limit)
	if err != nil {
		return nil, util.WrapError("list pending transcriptions", err)
	}

	result := &types.BatchResult{Results: make(map[string]types.BatchOutcome)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i := range pending {
		ev := pending[i]
		g.Go(func() error {
			outcome, ok := b.process(gctx, &ev)
			if !ok {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			result.Results[ev.EventoID] = outcome
			if outcome.Error == "" {
				result.Processed++
			}
			return nil
		})
	}
	_ = g.Wait() // Workers never return errors

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// process transcribes the missing columns of one event. Nothing is stored
// unless every transcription succeeds.
func (b *Backfiller) process(ctx context.Context, ev *types.Evento) (types.BatchOutcome, bool) {
	var detalhe, observacao types.OptionalString
	updated := make(map[string]string)

	if missing(ev.TranscricaoDetalhe) {
		if m := findMidia(ev.Midias, types.MidiaAudioDetalhe); m != nil {
			text, err := b.transcribe(ctx, m)
			if err != nil {
				return b.fail(ev.EventoID, err), true
			}
			detalhe = types.SomeString(text)
			updated[ColumnDetalhe] = text
		}
	}
	if missing(ev.TranscricaoObservacao) {
		if m := findMidia(ev.Midias, types.MidiaAudioObservacao); m != nil {
			text, err := b.transcribe(ctx, m)
			if err != nil {
				return b.fail(ev.EventoID, err), true
			}
			observacao = types.SomeString(text)
			updated[ColumnObservacao] = text
		}
	}

	if len(updated) == 0 {
		return types.BatchOutcome{}, false
	}

	if _, err := b.store.UpdateTranscricao(ctx, ev.EventoID, detalhe, observacao); err != nil {
		return b.fail(ev.EventoID, err), true
	}

	if err := b.events.Log(eventlog.TranscriptionCompleted, ev.EventoID, "batch", updated); err != nil {
		slog.Warn("failed to log transcription event", "error", err)
	}
	return types.BatchOutcome{Updated: updated}, true
}

// missing reports whether a transcription column is null or empty.
func missing(s *string) bool {
	return s == nil || *s == ""
}

func (b *Backfiller) transcribe(ctx context.Context, m *types.Midia) (string, error) {
	rc, err := b.open(ctx, *m)
	if err != nil {
		return "", err
	}
	defer util.SafeCloseFunc(rc, "batch audio")()

	res, err := b.transcriber.Transcribe(ctx, Audio{
		Body:     rc,
		Filename: filepath.Base(m.ArquivoPath),
		MimeType: m.MimeType,
	})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (b *Backfiller) fail(eventoID string, err error) types.BatchOutcome {
	slog.Warn("batch transcription failed", "evento_id", eventoID, "error", err)
	if logErr := b.events.LogEvento(eventlog.TranscriptionFailed, eventoID, eventlog.EventoDetails{Error: err.Error()}); logErr != nil {
		slog.Warn("failed to log transcription event", "error", logErr)
	}
	return types.BatchOutcome{Error: err.Error()}
}

// findMidia returns the first media of the given kind.
func findMidia(midias []types.Midia, tipo string) *types.Midia {
	for i := range midias {
		if midias[i].Tipo == tipo {
			return &midias[i]
		}
	}
	return nil
}
