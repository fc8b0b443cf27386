package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/traditional-medicine/mapcurator/internal/core"
)

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStats returns mapping counts by status plus entry and term totals.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.stats.Counts(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleCompleteness returns per-system entry coverage.
func (s *Server) handleCompleteness(w http.ResponseWriter, r *http.Request) {
	completeness, err := s.stats.CompletenessStats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, completeness)
}

// handleRejected lists rejected_correction mappings awaiting remap.
func (s *Server) handleRejected(w http.ResponseWriter, r *http.Request) {
	rejected, err := s.stats.RejectedMappings(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rejected)
}

// handleMasterMap lists staged and verified mappings grouped by entry.
func (s *Server) handleMasterMap(w http.ResponseWriter, r *http.Request) {
	rows, err := s.stats.MasterMapData(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleAuditLog returns audit records newest first. Supported query
// parameters: action, actor, start, end (RFC 3339), limit, offset.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilterFromQuery(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	records, err := s.stats.AuditLog(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func auditFilterFromQuery(r *http.Request) (core.AuditFilter, error) {
	q := r.URL.Query()
	filter := core.AuditFilter{
		Action: core.AuditAction(q.Get("action")),
		Actor:  q.Get("actor"),
	}

	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("start %q: %v: %w", v, err, core.ErrInvalidInput)
		}
		filter.StartTime = t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("end %q: %v: %w", v, err, core.ErrInvalidInput)
		}
		filter.EndTime = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("limit %q: %w", v, core.ErrInvalidInput)
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("offset %q: %w", v, core.ErrInvalidInput)
		}
		filter.Offset = n
	}
	return filter, nil
}
