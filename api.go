package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/oszuidwest/diario-bordo/internal/audio"
	"github.com/oszuidwest/diario-bordo/internal/eventlog"
	"github.com/oszuidwest/diario-bordo/internal/notify"
	"github.com/oszuidwest/diario-bordo/internal/server"
	"github.com/oszuidwest/diario-bordo/internal/store"
	"github.com/oszuidwest/diario-bordo/internal/types"
	"github.com/oszuidwest/diario-bordo/internal/update"
	"github.com/oszuidwest/diario-bordo/internal/util"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// Response messages shown to operators.
const (
	msgEtiquetaNotFound = "Etiqueta não encontrada"
	msgEventoNotFound   = "Evento não encontrado"
	msgNothingToUpdate  = "Nenhum campo para atualizar"
)

// isoMillis matches JavaScript's Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// API response helpers

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// writeData writes a successful {data, error:null} envelope.
func (s *Server) writeData(w http.ResponseWriter, data any) {
	s.writeJSON(w, http.StatusOK, types.Envelope{Data: data})
}

// writeError writes a {data:null, error:{message}} envelope.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, types.Envelope{Error: &types.ErrorBody{Message: message}})
}

// writeFailure maps an error to its status code and writes the envelope.
// Store misses use notFound as the message.
func (s *Server) writeFailure(w http.ResponseWriter, err error, notFound string) {
	var verr *types.ValidationError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		s.writeJSON(w, http.StatusBadRequest, types.Envelope{Error: &types.ErrorBody{
			Message: verr.Error(),
			Fields:  verr.Errors,
		}})
	case errors.Is(err, server.ErrInvalidJSON):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &maxErr):
		s.writeError(w, http.StatusRequestEntityTooLarge, "requisição excede o tamanho máximo")
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrNothingToUpdate):
		s.writeError(w, http.StatusBadRequest, msgNothingToUpdate)
	default:
		slog.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeBody reads, decodes and validates a JSON request body.
func decodeBody[T any](w http.ResponseWriter, r *http.Request, v *T) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		return err
	}
	return server.DecodeAndValidate(raw, v)
}

// queryInt parses an integer query parameter, returning def when absent or invalid.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

// logEvent writes to the audit log, logging failures.
func (s *Server) logEvent(t eventlog.EventType, eventoID string, d eventlog.EventoDetails) {
	if err := s.Events.LogEvento(t, eventoID, d); err != nil {
		slog.Warn("failed to write event log", "type", t, "error", err)
	}
}

// handleHealth reports liveness and whether a newer release exists.
// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := types.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(isoMillis),
		Version:   Version,
	}
	if st := s.Updates.Status(); st.UpdateAvailable {
		resp.UpdateAvailable = true
		resp.LatestVersion = st.Latest
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleTestConnection checks the database.
// GET /api/test-connection
func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	database := filepath.Base(s.config.Snapshot().DatabaseDSN)
	if err := s.Store.Ping(r.Context()); err != nil {
		slog.Error("database connection test failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, types.ConnectionResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, types.ConnectionResponse{
		Success:  true,
		Message:  "Conexão com o banco de dados OK!",
		Database: database,
	})
}

// handleVersion returns version and update information.
// GET /api/version
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	st := s.Updates.Status()
	s.writeData(w, types.VersionInfo{
		Current:     update.Normalize(Version),
		Latest:      st.Latest,
		UpdateAvail: st.UpdateAvailable,
		Commit:      Commit,
		BuildTime:   util.FormatHumanTime(BuildTime),
	})
}

// handleDevices lists local capture devices.
// GET /api/audio/devices
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, audio.ListDevices(r.Context(), s.config.Snapshot().FFmpegPath))
}

// --- Scrap labels ---

// handleGetRefugo looks up the newest scrap record for a label.
// GET /api/refugo/{etiqueta}
func (s *Server) handleGetRefugo(w http.ResponseWriter, r *http.Request) {
	refugo, err := s.Labels.RefugoByEtiqueta(r.Context(), r.PathValue("etiqueta"))
	if err != nil {
		s.writeFailure(w, err, msgEtiquetaNotFound)
		return
	}
	s.writeData(w, refugo)
}

// handleListRefugos lists recent scrap records.
// GET /api/refugos?limit=N
func (s *Server) handleListRefugos(w http.ResponseWriter, r *http.Request) {
	refugos, err := s.Store.ListRefugos(r.Context(), queryInt(r, "limit", store.DefaultRefugoLimit))
	if err != nil {
		s.writeFailure(w, err, "")
		return
	}
	s.writeData(w, refugos)
}

// --- Diary events ---

// handleCreateEvento creates a draft diary event.
// POST /api/diario-evento
func (s *Server) handleCreateEvento(w http.ResponseWriter, r *http.Request) {
	var req types.NewEvento
	if err := decodeBody(w, r, &req); err != nil {
		s.writeFailure(w, err, "")
		return
	}

	evento, err := s.Store.CreateEvento(r.Context(), &req)
	if err != nil {
		s.writeFailure(w, err, "")
		return
	}

	slog.Info("diary event created", "evento_id", evento.EventoID, "etiqueta", evento.Etiqueta)
	s.logEvent(eventlog.EventoCreated, evento.EventoID, eventlog.EventoDetails{Etiqueta: evento.Etiqueta})
	s.writeData(w, evento)
}

// handleListEventos lists recent diary events with their media.
// GET /api/diario-eventos?limit=N
func (s *Server) handleListEventos(w http.ResponseWriter, r *http.Request) {
	eventos, err := s.Store.ListEventos(r.Context(), queryInt(r, "limit", store.DefaultEventoLimit))
	if err != nil {
		s.writeFailure(w, err, "")
		return
	}
	s.writeData(w, eventos)
}

// handleGetEvento returns one diary event with its media.
// GET /api/diario-evento/{id}
func (s *Server) handleGetEvento(w http.ResponseWriter, r *http.Request) {
	evento, err := s.Store.Evento(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err, msgEventoNotFound)
		return
	}
	s.writeData(w, evento)
}

// handleUpdateTranscricao sets the transcriptions of an event.
// PATCH /api/diario-evento/{id}/transcricao
func (s *Server) handleUpdateTranscricao(w http.ResponseWriter, r *http.Request) {
	var req server.UpdateTranscricaoRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeFailure(w, err, msgEventoNotFound)
		return
	}

	evento, err := s.Store.UpdateTranscricao(r.Context(), r.PathValue("id"), req.Detalhe, req.Observacao)
	if err != nil {
		s.writeFailure(w, err, msgEventoNotFound)
		return
	}
	s.writeData(w, evento)
}

// handleFinalizeEvento marks an event as saved and notifies the webhook.
// PATCH /api/diario-evento/{id}/finalizar
func (s *Server) handleFinalizeEvento(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.Store.FinalizeEvento(r.Context(), id); err != nil {
		s.writeFailure(w, err, msgEventoNotFound)
		return
	}

	evento, err := s.Store.Evento(r.Context(), id)
	if err != nil {
		s.writeFailure(w, err, msgEventoNotFound)
		return
	}

	slog.Info("diary event finalized", "evento_id", id)
	s.logEvent(eventlog.EventoFinalized, id, eventlog.EventoDetails{Etiqueta: evento.Etiqueta})
	s.Notifier.HandleFinalized(evento)
	s.writeData(w, evento)
}

// handleDeleteEvento deletes an event, its media records and files.
// DELETE /api/diario-evento/{id}
func (s *Server) handleDeleteEvento(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	paths, err := s.Store.DeleteEvento(r.Context(), id)
	if err != nil {
		s.writeFailure(w, err, msgEventoNotFound)
		return
	}

	removed := s.Media.Remove(paths)
	slog.Info("diary event deleted", "evento_id", id, "files", removed)
	s.logEvent(eventlog.EventoDeleted, id, eventlog.EventoDetails{Files: removed})
	s.writeData(w, types.DeleteResponse{Deleted: true, EventoID: id})
}

// --- Audit log ---

// eventsResponse is the data of the audit log endpoint.
type eventsResponse struct {
	Events  []eventlog.Event `json:"events"`
	HasMore bool             `json:"has_more"`
}

// handleEvents reads the audit log, newest first.
// GET /api/events?limit=N&offset=N&filter=evento|transcription|upload
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	filter, ok := eventlog.ParseFilter(r.URL.Query().Get("filter"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "filtro inválido")
		return
	}

	events, more, err := eventlog.ReadLast(s.Events.Path(),
		queryInt(r, "limit", 100), queryInt(r, "offset", 0), filter)
	if err != nil {
		s.writeFailure(w, err, "")
		return
	}
	s.writeData(w, eventsResponse{Events: events, HasMore: more})
}

// --- Notifications ---

// handleUpdateWebhook sets the finalization webhook URL.
// PUT /api/notifications/webhook
func (s *Server) handleUpdateWebhook(w http.ResponseWriter, r *http.Request) {
	var req server.WebhookUpdateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeFailure(w, err, "")
		return
	}
	if err := s.config.SetWebhookURL(req.URL); err != nil {
		s.writeFailure(w, err, "")
		return
	}
	s.writeData(w, map[string]string{"url": req.URL})
}

// handleTestWebhook sends a test notification.
// POST /api/notifications/test-webhook
func (s *Server) handleTestWebhook(w http.ResponseWriter, _ *http.Request) {
	if err := s.Notifier.SendTest(); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, notify.ErrWebhookNotConfigured) {
			status = http.StatusBadRequest
		}
		slog.Warn("test webhook failed", "error", err)
		s.writeError(w, status, err.Error())
		return
	}
	s.writeData(w, map[string]bool{"success": true})
}
