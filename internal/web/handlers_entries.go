package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/traditional-medicine/mapcurator/internal/core"
)

// handleAddEntry registers a new classification entry in pending state.
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req core.AddEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	req.Actor = actorFor(r, req.Actor)

	entry, err := s.lifecycle.AddEntry(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// handleEnrichEntry backfills an entry's code and description from the
// external classification service.
func (s *Server) handleEnrichEntry(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "entry name is required")
		return
	}

	entry, err := s.enricher.EnrichEntry(r.Context(), name, core.GetActorFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
