package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vbonduro/freezerinv/internal/domain"
	"github.com/vbonduro/freezerinv/internal/export"
	"github.com/vbonduro/freezerinv/internal/service"
)

func (s *Server) handleExport(format service.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := s.service.Export(sessionFrom(r).Ledger, format, r.URL.Query().Get("columns"), sortedByCoordinate(r))
		if err != nil {
			if errors.Is(err, export.ErrUnknownColumn) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "failed to export inventory", http.StatusInternalServerError)
			s.logger.Error("export failed", "format", format, "error", err)
			return
		}

		w.Header().Set("Content-Type", d.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.FileName))
		w.Header().Set("Content-Length", strconv.Itoa(len(d.Data)))
		if _, err := w.Write(d.Data); err != nil {
			s.logger.Error("write export failed", "format", format, "error", err)
		}
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		http.Error(w, "failed to load statistics", http.StatusInternalServerError)
		s.logger.Error("stats failed", "error", err)
		return
	}
	if stats == nil {
		stats = []domain.BackendStats{}
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// handleRecentCalls lists the latest annotation calls; ?limit=N picks how many.
func (s *Server) handleRecentCalls(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	calls, err := s.service.RecentCalls(r.Context(), limit)
	if err != nil {
		http.Error(w, "failed to load annotation calls", http.StatusInternalServerError)
		s.logger.Error("recent calls failed", "error", err)
		return
	}
	if calls == nil {
		calls = []*domain.AnnotationCall{}
	}
	s.writeJSON(w, http.StatusOK, calls)
}
