package main

import (
	"net/http"

	"github.com/oszuidwest/diario-bordo/internal/fmea"
)

// dataset loads the embedded FMEA data or writes an error.
func (s *Server) dataset(w http.ResponseWriter) (*fmea.Dataset, bool) {
	d, err := fmea.Load()
	if err != nil {
		s.writeFailure(w, err, "")
		return nil, false
	}
	return d, true
}

// handleFmeaInsights returns the perception summary.
// GET /api/fmea/insights
func (s *Server) handleFmeaInsights(w http.ResponseWriter, _ *http.Request) {
	if d, ok := s.dataset(w); ok {
		s.writeData(w, d.Insights)
	}
}

// handleFmeaSPC returns the control charts.
// GET /api/fmea/spc?status=normal|tendencia|desvio
func (s *Server) handleFmeaSPC(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if !fmea.ValidStatus(status) {
		s.writeError(w, http.StatusBadRequest, "status inválido")
		return
	}
	if d, ok := s.dataset(w); ok {
		s.writeData(w, d.ChartsByStatus(status))
	}
}

// GET /api/fmea/clusters
func (s *Server) handleFmeaClusters(w http.ResponseWriter, _ *http.Request) {
	if d, ok := s.dataset(w); ok {
		s.writeData(w, d.Clusters)
	}
}

// GET /api/fmea/graph
func (s *Server) handleFmeaGraph(w http.ResponseWriter, _ *http.Request) {
	if d, ok := s.dataset(w); ok {
		s.writeData(w, d.KnowledgeGraph)
	}
}

// GET /api/fmea/pfmea
func (s *Server) handleFmeaPFMEA(w http.ResponseWriter, _ *http.Request) {
	if d, ok := s.dataset(w); ok {
		s.writeData(w, d.PFMEA)
	}
}
