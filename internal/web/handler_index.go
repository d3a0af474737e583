package web

import "net/http"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sorted := sortedByCoordinate(r)
	data := map[string]any{
		"InventoryName": s.service.InventoryName(),
		"Table":         entryTable{Entries: sessionFrom(r).Ledger.Snapshot(sorted), Sorted: sorted},
	}
	if err := s.renderPage(w, data,
		"base.html", "pages/inventory.html", "partials/entry_table.html", "partials/recognition.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}
