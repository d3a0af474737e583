package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vbonduro/freezerinv/internal/domain"
	"github.com/vbonduro/freezerinv/internal/ledger"
)

type entryTable struct {
	Entries []domain.Entry
	Sorted  bool
	Message string
}

func sortedByCoordinate(r *http.Request) bool {
	return r.URL.Query().Get("sort") == "coordinate"
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	s.respondEntries(w, r, http.StatusOK, "")
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	l := sessionFrom(r).Ledger
	e, err := s.service.AddEntry(l, r.FormValue("coordinate"), r.FormValue("description"))
	if err != nil {
		s.entryError(w, r, err)
		return
	}
	if isHTMX(r) {
		s.respondEntries(w, r, http.StatusCreated, "Added "+e.Coordinate)
		return
	}
	s.writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	l := sessionFrom(r).Ledger
	e, err := s.service.UpdateEntry(l, r.PathValue("coordinate"), r.FormValue("description"))
	if err != nil {
		s.entryError(w, r, err)
		return
	}
	if isHTMX(r) {
		s.respondEntries(w, r, http.StatusOK, "Updated "+e.Coordinate)
		return
	}
	s.writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleRemoveLast(w http.ResponseWriter, r *http.Request) {
	e, ok := sessionFrom(r).Ledger.RemoveLast()
	if ok {
		s.logger.Info("entry removed", "coordinate", e.Coordinate)
	}
	switch {
	case isHTMX(r):
		msg := "Nothing to remove"
		if ok {
			msg = "Removed " + e.Coordinate
		}
		s.respondEntries(w, r, http.StatusOK, msg)
	case !ok:
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeJSON(w, http.StatusOK, e)
	}
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Ledger.Clear()
	s.logger.Info("ledger cleared")
	if isHTMX(r) {
		s.respondEntries(w, r, http.StatusOK, "Cleared")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondEntries renders the caller's ledger as JSON, or as the entry table
// partial for htmx requests.
func (s *Server) respondEntries(w http.ResponseWriter, r *http.Request, status int, msg string) {
	sorted := sortedByCoordinate(r)
	entries := sessionFrom(r).Ledger.Snapshot(sorted)
	if isHTMX(r) {
		if err := s.renderPartial(w, status, "partials/entry_table.html",
			entryTable{Entries: entries, Sorted: sorted, Message: msg}); err != nil {
			s.logger.Error("render partial failed", "error", err)
		}
		return
	}
	if entries == nil {
		entries = []domain.Entry{}
	}
	s.writeJSON(w, status, entries)
}

func (s *Server) entryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrDuplicateCoordinate):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ledger.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrInvalidCoordinate), errors.Is(err, ledger.ErrEmptyDescription):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "failed to update inventory", http.StatusInternalServerError)
		s.logger.Error("entry operation failed", "path", r.URL.Path, "error", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write json failed", "error", err)
	}
}
