package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ethpandaops/testnetoor/pkg/archive"
	"github.com/ethpandaops/testnetoor/pkg/report"
	"github.com/ethpandaops/testnetoor/pkg/store"
)

const maxListLimit = 500

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// writeStoreError maps store errors to responses.
func (s *server) writeStoreError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{"not found"})

		return
	}

	s.log.WithError(err).WithField("op", op).Error("Store request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{op + ": " + err.Error()})
}

// parseLimit reads the optional limit query parameter.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}

	return min(limit, maxListLimit), nil
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListRuns lists workflow runs, newest first.
func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	runs, err := s.store.ListRuns(r.Context(), store.RunFilter{
		NetworkName:  r.URL.Query().Get("network"),
		WorkflowName: r.URL.Query().Get("workflow"),
		Limit:        limit,
	})
	if err != nil {
		s.writeStoreError(w, "listing runs", err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleListDeployments lists deployments, newest first.
func (s *server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	deployments, err := s.store.ListDeployments(r.Context(), store.DeploymentFilter{
		Name:  r.URL.Query().Get("name"),
		Limit: limit,
	})
	if err != nil {
		s.writeStoreError(w, "listing deployments", err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deployments": deployments})
}

// handleGetDeployment returns one deployment with its workflow run.
func (s *server) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid deployment id"})

		return
	}

	d, err := s.store.GetDeployment(r.Context(), uint(id))
	if err != nil {
		s.writeStoreError(w, "getting deployment", err)

		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleListComparisons lists comparisons, newest first.
func (s *server) handleListComparisons(w http.ResponseWriter, r *http.Request) {
	comparisons, err := s.store.ListComparisons(r.Context())
	if err != nil {
		s.writeStoreError(w, "listing comparisons", err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"comparisons": comparisons})
}

// handleGetComparison returns one comparison with its deployments.
func (s *server) handleGetComparison(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetComparison(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, "getting comparison", err)

		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleComparisonReport returns the report text. Recorded results carry
// the report as it was published; otherwise it is generated from the
// current state. Comparisons unknown to the store fall back to the
// archive.
func (s *server) handleComparisonReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, text, err := report.Generate(r.Context(), s.store, id)

	switch {
	case err == nil:
		if c.Report != nil && *c.Report != "" {
			text = *c.Report
		}
	case errors.Is(err, store.ErrNotFound) && s.archive != nil && s.archive.Enabled():
		text, err = s.archive.FetchReport(r.Context(), id)
		if errors.Is(err, archive.ErrNotArchived) {
			writeJSON(w, http.StatusNotFound, errorResponse{"not found"})

			return
		}

		if err != nil {
			s.log.WithError(err).Warn("Fetching archived report failed")
			writeJSON(w, http.StatusBadGateway, errorResponse{"fetching archived report"})

			return
		}
	default:
		s.writeStoreError(w, "building report", err)

		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}
