package main

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/oszuidwest/diario-bordo/internal/eventlog"
	"github.com/oszuidwest/diario-bordo/internal/media"
	"github.com/oszuidwest/diario-bordo/internal/server"
	"github.com/oszuidwest/diario-bordo/internal/types"
)

// Multipart limits.
const (
	multipartMemory   = 8 << 20
	multipartOverhead = 1 << 20
)

const msgNoFile = "Nenhum arquivo enviado"

// handleUploadMidia stores an uploaded file and registers it against an event.
// POST /api/upload-midia (multipart: file, evento_id, tipo, duracao_seg)
func (s *Server) handleUploadMidia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.Media.MaxBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, media.ErrTooLarge.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close() //nolint:errcheck // Multipart file, close error not critical

	tipo := r.FormValue("tipo")
	req := types.NewMidia{
		EventoID: r.FormValue("evento_id"),
		Tipo:     tipo,
		MimeType: header.Header.Get("Content-Type"),
	}
	if v := r.FormValue("duracao_seg"); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			req.DuracaoSeg = &d
		}
	}
	stored, err := s.Media.Save(file, tipo, header.Filename, req.MimeType)
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		s.writeError(w, http.StatusBadRequest, "Tipo de arquivo não suportado")
		return
	case errors.Is(err, media.ErrTooLarge):
		s.writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		s.writeFailure(w, err, "")
		return
	}

	req.ArquivoURL = stored.URL
	req.ArquivoPath = stored.Path
	req.TamanhoBytes = stored.Size

	if err := server.Validate(&req); err != nil {
		s.Media.Remove([]string{stored.Path})
		s.writeFailure(w, err, "")
		return
	}

	midia, err := s.Store.CreateMidia(r.Context(), &req)
	if err != nil {
		s.Media.Remove([]string{stored.Path})
		s.writeFailure(w, err, msgEventoNotFound)
		return
	}

	slog.Info("media uploaded", "evento_id", midia.EventoID, "tipo", tipo, "url", stored.URL, "size", stored.Size)
	s.logEvent(eventlog.MidiaUploaded, midia.EventoID, eventlog.EventoDetails{
		MidiaID: midia.MidiaID,
		Tipo:    tipo,
		URL:     stored.URL,
	})
	if s.Mirror != nil {
		s.Mirror.Enqueue(stored)
	}
	s.writeData(w, midia)
}

// handleCreateMidia registers media metadata without a file.
// POST /api/diario-midia
func (s *Server) handleCreateMidia(w http.ResponseWriter, r *http.Request) {
	var req types.NewMidia
	if err := decodeBody(w, r, &req); err != nil {
		s.writeFailure(w, err, "")
		return
	}

	midia, err := s.Store.CreateMidia(r.Context(), &req)
	if err != nil {
		s.writeFailure(w, err, msgEventoNotFound)
		return
	}
	s.logEvent(eventlog.MidiaUploaded, midia.EventoID, eventlog.EventoDetails{
		MidiaID: midia.MidiaID,
		Tipo:    midia.Tipo,
		URL:     midia.ArquivoURL,
	})
	s.writeData(w, midia)
}

// handleTestS3 tests S3 connectivity. An empty body tests the running mirror.
// POST /api/storage/test-s3
func (s *Server) handleTestS3(w http.ResponseWriter, r *http.Request) {
	var req server.S3TestRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeFailure(w, err, "")
		return
	}

	var err error
	switch {
	case req.Bucket != "":
		err = media.TestS3Connection(r.Context(), &media.S3Config{
			Endpoint:        req.Endpoint,
			Bucket:          req.Bucket,
			Prefix:          req.Prefix,
			AccessKeyID:     req.AccessKey,
			SecretAccessKey: req.SecretKey,
		})
	case s.Mirror != nil:
		err = s.Mirror.TestConnection(r.Context())
	default:
		err = media.ErrS3NotConfigured
	}

	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, media.ErrS3NotConfigured) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeData(w, map[string]bool{"success": true})
}
