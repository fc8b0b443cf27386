package web

import (
	"net/http"

	"github.com/traditional-medicine/mapcurator/internal/core"
)

// handleStartReset launches a full database reset. The job runs in the
// background; callers poll /api/admin/reset/status for progress.
func (s *Server) handleStartReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Actor string `json:"actor,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	jobID, err := s.reset.Start(r.Context(), actorFor(r, req.Actor))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"jobId": jobID,
		"state": string(core.ResetRunning),
	})
}

// handleResetStatus reports the current or most recent reset job.
func (s *Server) handleResetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reset.Status())
}
