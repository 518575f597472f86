// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lifecatcher9182/vote-system-sub000/middleware"
	"github.com/lifecatcher9182/vote-system-sub000/models"
	"github.com/lifecatcher9182/vote-system-sub000/results"
	"github.com/lifecatcher9182/vote-system-sub000/store"
)

type ResultsHandler struct {
	store   *store.Store
	monitor *results.Monitor
}

func NewResultsHandler(st *store.Store, monitor *results.Monitor) *ResultsHandler {
	return &ResultsHandler{store: st, monitor: monitor}
}

// GetLiveResults handles GET /admin/elections/{id}/results
// Returns running results in any status for the operator monitor
func (h *ResultsHandler) GetLiveResults(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id is required")
		return
	}

	res, err := h.monitor.Live(r.Context(), electionID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to compute live results", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute results")
		return
	}

	if !res.TallyConsistent {
		slog.Warn("candidate tallies disagree with ballot ledger", "election_id", electionID)
	}

	middleware.JSONResponse(w, http.StatusOK, res)
}

// GetResults handles GET /elections/{id}/results
// Returns 403 while the election is open and the final snapshot once closed
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id is required")
		return
	}

	election, err := h.store.GetElection(r.Context(), electionID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Results stay sealed until voting is over
	if election.Status != models.StatusClosed {
		middleware.ErrorResponse(w, http.StatusForbidden, "Results are hidden until the election is closed")
		return
	}

	if election.FinalSnapshotID == nil {
		slog.Error("closed election has no snapshot", "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Results not available")
		return
	}

	snapshot, err := h.store.GetSnapshot(r.Context(), *election.FinalSnapshotID)
	if err != nil {
		slog.Error("failed to load snapshot", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Results not available")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, snapshot)
}
