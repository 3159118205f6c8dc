package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/oszuidwest/diario-bordo/internal/eventlog"
	"github.com/oszuidwest/diario-bordo/internal/media"
	"github.com/oszuidwest/diario-bordo/internal/server"
	"github.com/oszuidwest/diario-bordo/internal/transcribe"
	"github.com/oszuidwest/diario-bordo/internal/types"
)

const (
	msgNoAudio     = "Nenhum arquivo de áudio enviado"
	msgNoOpenAIKey = "API Key do OpenAI não configurada"
)

// handleTranscribeAudio transcribes an uploaded voice memo. When evento_id
// and tipo are given the text is stored on the event; a storage failure is
// logged and the text is still returned.
// POST /api/transcribe-audio (multipart: file, evento_id, tipo, language)
func (s *Server) handleTranscribeAudio(w http.ResponseWriter, r *http.Request) {
	cfg := s.config.Snapshot()
	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxAudioBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, types.TranscriptionResponse{Error: media.ErrTooLarge.Error()})
			return
		}
		s.writeJSON(w, http.StatusBadRequest, types.TranscriptionResponse{Error: msgNoAudio})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, types.TranscriptionResponse{Error: msgNoAudio})
		return
	}
	defer file.Close() //nolint:errcheck // Multipart file, close error not critical

	req := server.TranscribeFormRequest{
		EventoID: r.FormValue("evento_id"),
		Tipo:     r.FormValue("tipo"),
		Language: r.FormValue("language"),
	}
	if err := server.Validate(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, types.TranscriptionResponse{Error: err.Error()})
		return
	}

	if req.Language == "" {
		req.Language = cfg.TranscriptionLanguage
	}

	slog.Info("transcribing audio", "evento_id", req.EventoID, "tipo", req.Tipo,
		"file", header.Filename, "size", header.Size)

	result, err := s.Transcriber.Transcribe(r.Context(), transcribe.Audio{
		Body:     file,
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Language: req.Language,
	})
	if err != nil {
		s.transcriptionFailed(w, req.EventoID, err)
		return
	}

	resp := types.TranscriptionResponse{Success: true, Text: result.Text}
	if req.EventoID != "" && req.Tipo != "" {
		if err := s.Store.SetTranscricao(r.Context(), req.EventoID, req.Tipo, result.Text); err != nil {
			slog.Error("failed to store transcription", "evento_id", req.EventoID, "error", err)
			resp.Warning = "transcrição não foi salva: " + err.Error()
		}
	}

	if err := s.Events.Log(eventlog.TranscriptionCompleted, req.EventoID, req.Tipo, nil); err != nil {
		slog.Warn("failed to write event log", "error", err)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// transcriptionFailed writes the error response of the transcription endpoint.
func (s *Server) transcriptionFailed(w http.ResponseWriter, eventoID string, err error) {
	slog.Error("transcription failed", "evento_id", eventoID, "error", err)
	s.logEvent(eventlog.TranscriptionFailed, eventoID, eventlog.EventoDetails{Error: err.Error()})

	resp := types.TranscriptionResponse{Error: err.Error()}
	var apiErr *transcribe.APIError
	switch {
	case errors.Is(err, transcribe.ErrNotConfigured):
		resp.Error = msgNoOpenAIKey
	case errors.As(err, &apiErr):
		resp.Details = apiErr.Body
	}
	s.writeJSON(w, http.StatusInternalServerError, resp)
}

// handleTranscribeBatch backfills missing transcriptions from stored audio.
// POST /api/transcribe-batch?limit=N
func (s *Server) handleTranscribeBatch(w http.ResponseWriter, r *http.Request) {
	if !s.config.Snapshot().HasTranscription() {
		s.writeError(w, http.StatusInternalServerError, msgNoOpenAIKey)
		return
	}

	result, err := s.Backfill.Run(r.Context(), queryInt(r, "limit", transcribe.DefaultBatchLimit))
	if err != nil {
		s.writeFailure(w, err, "")
		return
	}
	slog.Info("transcription batch complete", "processed", result.Processed, "results", len(result.Results))
	s.writeData(w, result)
}
