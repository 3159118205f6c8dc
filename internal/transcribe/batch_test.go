package transcribe

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/oszuidwest/diario-bordo/internal/types"
)

type fakeStore struct {
	mu      sync.Mutex
	pending []types.Evento
	updates map[string][2]types.OptionalString
	failID  string
}

func (s *fakeStore) PendingTranscriptions(_ context.Context, limit int) ([]types.Evento, error) {
	return s.pending[:min(limit, len(s.pending))], nil
}

func (s *fakeStore) UpdateTranscricao(_ context.Context, id string, detalhe, observacao types.OptionalString) (*types.Evento, error) {
	if id == s.failID {
		return nil, errors.New("database locked")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[id] = [2]types.OptionalString{detalhe, observacao}
	return &types.Evento{EventoID: id}, nil
}

// echoTranscriber returns the audio content as text; content "fail" errors.
type echoTranscriber struct{}

func (echoTranscriber) Transcribe(_ context.Context, a Audio) (Result, error) {
	data, _ := io.ReadAll(a.Body)
	if string(data) == "fail" {
		return Result{}, &APIError{Status: 500}
	}
	return Result{Text: string(data)}, nil
}

// urlOpener serves the media URL as its content.
func urlOpener(_ context.Context, m types.Midia) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(m.ArquivoURL)), nil
}

func ptr(s string) *string { return &s }

func TestBackfillRun(t *testing.T) {
	store := &fakeStore{
		updates: make(map[string][2]types.OptionalString),
		pending: []types.Evento{
			{
				EventoID: "both",
				Midias: []types.Midia{
					{Tipo: types.MidiaAudioDetalhe, ArquivoURL: "detalhe texto"},
					{Tipo: types.MidiaAudioObservacao, ArquivoURL: "obs texto"},
				},
			},
			{
				EventoID:           "obs-only",
				TranscricaoDetalhe: ptr("já existe"),
				Midias: []types.Midia{
					{Tipo: types.MidiaAudioDetalhe, ArquivoURL: "ignored"},
					{Tipo: types.MidiaAudioObservacao, ArquivoURL: "observação"},
				},
			},
			{
				EventoID:              "empty-detalhe",
				TranscricaoDetalhe:    ptr(""),
				TranscricaoObservacao: ptr("feita"),
				Midias:                []types.Midia{{Tipo: types.MidiaAudioDetalhe, ArquivoURL: "refeito"}},
			},
			{
				EventoID: "no-audio",
				Midias:   []types.Midia{{Tipo: types.MidiaFoto, ArquivoURL: "foto"}},
			},
			{
				EventoID: "api-error",
				Midias:   []types.Midia{{Tipo: types.MidiaAudioDetalhe, ArquivoURL: "fail"}},
			},
		},
	}

	b := NewBackfiller(store, echoTranscriber{}, urlOpener, nil, 2)
	res, err := b.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Processed != 3 {
		t.Errorf("Processed = %d, want 3", res.Processed)
	}
	if got := res.Results["empty-detalhe"].Updated; len(got) != 1 || got[ColumnDetalhe] != "refeito" {
		t.Errorf("empty-detalhe updated = %v", got)
	}
	if _, ok := res.Results["no-audio"]; ok {
		t.Error("event without audio reported")
	}
	if got := res.Results["both"].Updated; got[ColumnDetalhe] != "detalhe texto" || got[ColumnObservacao] != "obs texto" {
		t.Errorf("both updated = %v", got)
	}
	if got := res.Results["obs-only"].Updated; len(got) != 1 || got[ColumnObservacao] != "observação" {
		t.Errorf("obs-only updated = %v", got)
	}
	if got := res.Results["api-error"].Error; got != "Erro Whisper API: 500" {
		t.Errorf("api-error = %q", got)
	}

	u := store.updates["obs-only"]
	if u[0].Set || !u[1].Set || u[1].Value != "observação" {
		t.Errorf("stored obs-only = %v", u)
	}
	if _, ok := store.updates["api-error"]; ok {
		t.Error("failed event was stored")
	}
}

func TestBackfillStoreFailure(t *testing.T) {
	store := &fakeStore{
		updates: make(map[string][2]types.OptionalString),
		failID:  "e1",
		pending: []types.Evento{{
			EventoID: "e1",
			Midias:   []types.Midia{{Tipo: types.MidiaAudioDetalhe, ArquivoURL: "texto"}},
		}},
	}
	res, err := NewBackfiller(store, echoTranscriber{}, urlOpener, nil, 0).Run(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 0 || res.Results["e1"].Error != "database locked" {
		t.Errorf("result = %+v", res)
	}
}

func TestFindMidia(t *testing.T) {
	midias := []types.Midia{
		{MidiaID: "a", Tipo: types.MidiaFoto},
		{MidiaID: "b", Tipo: types.MidiaAudioObservacao},
		{MidiaID: "c", Tipo: types.MidiaAudioObservacao},
	}
	if m := findMidia(midias, types.MidiaAudioObservacao); m == nil || m.MidiaID != "b" {
		t.Errorf("findMidia() = %+v", m)
	}
	if m := findMidia(midias, types.MidiaAudioDetalhe); m != nil {
		t.Errorf("findMidia() = %+v, want nil", m)
	}
}
