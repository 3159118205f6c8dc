package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/oszuidwest/diario-bordo/internal/audio"
	"github.com/oszuidwest/diario-bordo/internal/config"
	"github.com/oszuidwest/diario-bordo/internal/eventlog"
	"github.com/oszuidwest/diario-bordo/internal/media"
	"github.com/oszuidwest/diario-bordo/internal/notify"
	"github.com/oszuidwest/diario-bordo/internal/server"
	"github.com/oszuidwest/diario-bordo/internal/store"
	"github.com/oszuidwest/diario-bordo/internal/transcribe"
	"github.com/oszuidwest/diario-bordo/internal/update"
)

// Services are the collaborators of the HTTP server. Mirror and Updates may
// be nil.
type Services struct {
	Store       *store.Store
	Labels      *store.LabelCache
	Media       *media.Storage
	Mirror      *media.Mirror
	Transcriber transcribe.Transcriber
	Backfill    *transcribe.Backfiller
	Events      *eventlog.Logger
	Notifier    *notify.EventoNotifier
	Updates     *update.Checker
}

// Server is the HTTP server of the diary service.
type Server struct {
	config *config.Config
	Services
}

// NewServer returns a new Server configured with the provided config and services.
func NewServer(cfg *config.Config, svc Services) *Server {
	return &Server{config: cfg, Services: svc}
}

// SetupRoutes returns an [http.Handler] configured with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("GET /api/health", s.handleHealth)
	api.HandleFunc("GET /api/test-connection", s.handleTestConnection)
	api.HandleFunc("GET /api/version", s.handleVersion)

	// Scrap labels
	api.HandleFunc("GET /api/refugo/{etiqueta}", s.handleGetRefugo)
	api.HandleFunc("GET /api/refugos", s.handleListRefugos)

	// Diary events
	api.HandleFunc("POST /api/diario-evento", s.handleCreateEvento)
	api.HandleFunc("GET /api/diario-eventos", s.handleListEventos)
	api.HandleFunc("GET /api/diario-evento/{id}", s.handleGetEvento)
	api.HandleFunc("PATCH /api/diario-evento/{id}/transcricao", s.handleUpdateTranscricao)
	api.HandleFunc("PATCH /api/diario-evento/{id}/finalizar", s.handleFinalizeEvento)
	api.HandleFunc("DELETE /api/diario-evento/{id}", s.handleDeleteEvento)

	// Media
	api.HandleFunc("POST /api/upload-midia", s.handleUploadMidia)
	api.HandleFunc("POST /api/diario-midia", s.handleCreateMidia)
	api.HandleFunc("POST /api/storage/test-s3", s.handleTestS3)
	api.Handle("GET /uploads/", http.StripPrefix("/uploads/", noDirListing(http.FileServer(http.Dir(s.Media.Root())))))

	// Transcription
	api.HandleFunc("POST /api/transcribe-audio", s.handleTranscribeAudio)
	api.HandleFunc("POST /api/transcribe-batch", s.handleTranscribeBatch)

	// Audit log and notifications
	api.HandleFunc("GET /api/events", s.handleEvents)
	api.HandleFunc("PUT /api/notifications/webhook", s.handleUpdateWebhook)
	api.HandleFunc("POST /api/notifications/test-webhook", s.handleTestWebhook)

	// FMEA Vivo
	api.HandleFunc("GET /api/fmea/insights", s.handleFmeaInsights)
	api.HandleFunc("GET /api/fmea/spc", s.handleFmeaSPC)
	api.HandleFunc("GET /api/fmea/clusters", s.handleFmeaClusters)
	api.HandleFunc("GET /api/fmea/graph", s.handleFmeaGraph)
	api.HandleFunc("GET /api/fmea/pfmea", s.handleFmeaPFMEA)

	// Audio metering
	api.HandleFunc("GET /api/audio/devices", s.handleDevices)

	mux := http.NewServeMux()
	// The WebSocket route bypasses compression; it hijacks the connection.
	mux.HandleFunc("GET /ws/meter", s.handleMeterWebSocket)
	mux.Handle("/", gzhttp.GzipHandler(api))

	return securityHeaders(s.cors(mux))
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// cors returns middleware that answers preflight requests and sets CORS
// headers for allowed origins.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			cfg := s.config.Snapshot()
			if cfg.AllowsOrigin(origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Client-Info, Apikey")
			}
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// noDirListing rejects directory requests so the upload tree cannot be listed.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleMeterWebSocket meters the PCM a client streams and replies with one
// level frame per tick.
// GET /ws/meter?format=json|msgpack
func (s *Server) handleMeterWebSocket(w http.ResponseWriter, r *http.Request) {
	format, ok := server.ParseMeterFormat(r.URL.Query().Get("format"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "formato inválido")
		return
	}

	cfg := s.config.Snapshot()
	conn, err := server.UpgradeConnection(w, r, cfg.AllowsOrigin)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	meterCfg := audio.DefaultMeterConfig()
	meterCfg.Bars = cfg.MeterBars
	meterCfg.Interval = cfg.MeterTick

	slog.Debug("meter client connected", "remote", r.RemoteAddr, "format", format)
	server.ServeMeter(r.Context(), conn, meterCfg, format)
	slog.Debug("meter client disconnected", "remote", r.RemoteAddr)
}

// Start begins the HTTP server.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.config.Snapshot().Port)
	slog.Info("starting web server", "addr", addr)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}
