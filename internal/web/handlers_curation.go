package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/traditional-medicine/mapcurator/internal/core"
)

// decodeJSON decodes a request body, rejecting unknown fields so typos
// in payloads surface as 422s instead of silently dropped data.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %v: %w", err, core.ErrInvalidInput)
	}
	return nil
}

// actorFor resolves who performed a request: the payload's actor when
// present, otherwise the X-Actor header captured in the context.
func actorFor(r *http.Request, payload string) string {
	if payload != "" {
		return payload
	}
	return core.GetActorFromContext(r.Context())
}

// handleSubmitCuration applies a batch of curation decisions.
func (s *Server) handleSubmitCuration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decisions []core.CurationDecision `json:"decisions"`
		Actor     string                  `json:"actor,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if len(req.Decisions) == 0 {
		s.respondError(w, r, fmt.Errorf("no decisions submitted: %w", core.ErrInvalidInput))
		return
	}

	actor := actorFor(r, req.Actor)
	for i := range req.Decisions {
		if req.Decisions[i].Actor == "" {
			req.Decisions[i].Actor = actor
		}
	}

	summary, err := s.lifecycle.SubmitCuration(r.Context(), req.Decisions)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleCommit promotes every staged mapping to verified.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Actor string `json:"actor,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	committed, err := s.lifecycle.CommitToMaster(r.Context(), actorFor(r, req.Actor))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"committed": committed})
}

// handleUndo returns one entry's verified mappings to staged.
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntryName string `json:"entryName"`
		Actor     string `json:"actor,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	undone, err := s.lifecycle.UndoVerification(r.Context(), req.EntryName, actorFor(r, req.Actor))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"undone": undone})
}

// handleRevert returns all of one entry's mappings to suggested.
func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntryName string `json:"entryName"`
		Actor     string `json:"actor,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	reverted, err := s.lifecycle.RevertEntry(r.Context(), req.EntryName, actorFor(r, req.Actor))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"reverted": reverted})
}

// handleRemap moves a rejected mapping to a different entry.
func (s *Server) handleRemap(w http.ResponseWriter, r *http.Request) {
	var req core.RemapRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	req.Actor = actorFor(r, req.Actor)

	result, err := s.lifecycle.RemapRejected(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleVerifyAI verifies a freeform term directly against an entry.
func (s *Server) handleVerifyAI(w http.ResponseWriter, r *http.Request) {
	var req core.VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	req.Actor = actorFor(r, req.Actor)

	mapping, err := s.lifecycle.VerifyWithAI(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapping)
}

// handleUpdateMasterMapping replaces one (entry, system) staged set.
func (s *Server) handleUpdateMasterMapping(w http.ResponseWriter, r *http.Request) {
	var req core.EditorUpdate
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	req.Actor = actorFor(r, req.Actor)

	if err := s.lifecycle.UpdateMasterMapping(r.Context(), req); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
