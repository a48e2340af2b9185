package server

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/newsdesk/internal/db"
	"github.com/jonathan/newsdesk/internal/pipeline"
	"github.com/jonathan/newsdesk/internal/types"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string      `json:"status"`
	Running  bool        `json:"running"`
	NextRuns []time.Time `json:"next_runs"`
}

// LastRunResponse is the body of GET /runs/last.
type LastRunResponse struct {
	Report *pipeline.RunReport `json:"report"`
	Error  string              `json:"error,omitempty"`
}

// DraftsResponse is the body of GET /drafts.
type DraftsResponse struct {
	Drafts []types.Article `json:"drafts"`
	Count  int             `json:"count"`
}

// handleRun starts a pipeline run in the background.
func (s *Server) handleRun(w http.ResponseWriter, _ *http.Request) {
	if err := s.trigger.Trigger(); err != nil {
		status := HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("run trigger failed", zap.Error(err))
		}
		s.errorResponse(w, status, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	next := s.trigger.NextRuns()
	if next == nil {
		next = []time.Time{}
	}
	s.jsonResponse(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Running:  s.trigger.Running(),
		NextRuns: next,
	})
}

// handleLastRun returns the report of the most recent run.
func (s *Server) handleLastRun(w http.ResponseWriter, _ *http.Request) {
	report, runErr := s.trigger.LastRun()
	if report == nil && runErr == nil {
		err := &ErrNotFound{Resource: "run"}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	resp := LastRunResponse{Report: report}
	if runErr != nil {
		resp.Error = runErr.Error()
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleListDrafts lists the newest drafts.
func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorResponse(w, HTTPStatus(errStoreUnavailable), errStoreUnavailable.Error())
		return
	}

	limit := db.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			verr := &ErrValidation{Field: "limit", Message: "must be a positive integer"}
			s.errorResponse(w, HTTPStatus(verr), verr.Error())
			return
		}
		limit = n
	}

	drafts, err := s.store.ListDrafts(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list drafts", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "failed to list drafts")
		return
	}
	if drafts == nil {
		drafts = []types.Article{}
	}
	s.jsonResponse(w, http.StatusOK, DraftsResponse{Drafts: drafts, Count: len(drafts)})
}
