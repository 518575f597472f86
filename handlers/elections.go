// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lifecatcher9182/vote-system-sub000/auth"
	"github.com/lifecatcher9182/vote-system-sub000/events"
	"github.com/lifecatcher9182/vote-system-sub000/middleware"
	"github.com/lifecatcher9182/vote-system-sub000/models"
	"github.com/lifecatcher9182/vote-system-sub000/results"
	"github.com/lifecatcher9182/vote-system-sub000/store"
)

var (
	errNotClosed    = errors.New("election is not closed")
	errClearResult  = errors.New("election has a clear result")
	errBadStatus    = errors.New("status change not allowed")
	errNoCandidates = errors.New("election has no candidates")
)

// allowedTransitions lists the statuses each status may move to. Closed is
// terminal.
var allowedTransitions = map[string][]string{
	models.StatusWaiting:     {models.StatusRegistering, models.StatusActive},
	models.StatusRegistering: {models.StatusActive},
	models.StatusActive:      {models.StatusClosed},
}

type ElectionHandler struct {
	store     *store.Store
	monitor   *results.Monitor
	publisher events.Publisher
}

func NewElectionHandler(st *store.Store, monitor *results.Monitor, publisher events.Publisher) *ElectionHandler {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ElectionHandler{store: st, monitor: monitor, publisher: publisher}
}

// CreateElection handles POST /admin/elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.ElectionType != models.TypeDelegate && req.ElectionType != models.TypeOfficer {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_type must be delegate or officer")
		return
	}
	if req.MaxSelections < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "max_selections must be at least 1")
		return
	}
	criteria, err := normalizeCriteria(req.WinningCriteria)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	electionID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate election ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	election := &models.Election{
		ID:              electionID,
		Title:           req.Title,
		ElectionType:    req.ElectionType,
		MaxSelections:   req.MaxSelections,
		Status:          models.StatusWaiting,
		WinningCriteria: criteria,
		VillageID:       req.VillageID,
		Position:        req.Position,
		GroupID:         req.GroupID,
		Round:           1,
	}

	ctx := r.Context()
	err = h.store.InTx(ctx, func(tx *store.Store) error {
		if err := tx.CreateElection(ctx, election); err != nil {
			return err
		}
		if election.GroupID == nil {
			return nil
		}
		_, err := tx.GrantElectionToGroup(ctx, *election.GroupID, election.ID)
		return err
	})
	if err != nil {
		slog.Error("failed to create election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	slog.Info("election created", "election_id", electionID, "type", req.ElectionType, "criteria", criteria.Kind)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateElectionResponse{ElectionID: electionID})
}

// normalizeCriteria validates winning criteria and fills defaults. An empty
// kind means plurality; an empty percentage base means attended.
func normalizeCriteria(c models.WinningCriteria) (models.WinningCriteria, error) {
	switch c.Kind {
	case "", models.CriteriaPlurality:
		return models.WinningCriteria{Kind: models.CriteriaPlurality}, nil
	case models.CriteriaAbsoluteMajority:
		return models.WinningCriteria{Kind: models.CriteriaAbsoluteMajority}, nil
	case models.CriteriaPercentage:
		if c.Percentage <= 0 || c.Percentage > 100 {
			return c, errors.New("percentage must be greater than 0 and at most 100")
		}
		if c.Base == "" {
			c.Base = models.BaseAttended
		}
		if c.Base != models.BaseAttended && c.Base != models.BaseIssued {
			return c, errors.New("percentage base must be attended or issued")
		}
		return c, nil
	default:
		return c, fmt.Errorf("unknown winning criteria %q", c.Kind)
	}
}

// AddCandidate handles POST /admin/elections/{id}/candidates
func (h *ElectionHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")

	var req models.AddCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	election, ok := h.loadElection(r.Context(), w, electionID)
	if !ok {
		return
	}
	if election.Status != models.StatusWaiting && election.Status != models.StatusRegistering {
		middleware.ErrorResponse(w, http.StatusConflict, "Candidates can only be added before voting opens")
		return
	}

	candidateID, err := auth.GenerateID(12)
	if err != nil {
		slog.Error("failed to generate candidate ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add candidate")
		return
	}

	candidate := &models.Candidate{ID: candidateID, ElectionID: electionID, Name: req.Name}
	if err := h.store.CreateCandidate(r.Context(), candidate); err != nil {
		slog.Error("failed to insert candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add candidate")
		return
	}

	slog.Info("candidate added", "election_id", electionID, "candidate_id", candidateID)

	middleware.JSONResponse(w, http.StatusCreated, models.AddCandidateResponse{CandidateID: candidateID})
}

// SetStatus handles POST /admin/elections/{id}/status
// Moving to closed takes the same path as CloseElection
func (h *ElectionHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")

	var req models.SetStatusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Status == models.StatusClosed {
		h.close(w, r, electionID)
		return
	}

	ctx := r.Context()
	err := h.store.InTx(ctx, func(tx *store.Store) error {
		election, err := tx.GetElection(ctx, electionID)
		if err != nil {
			return err
		}
		if !canTransition(election.Status, req.Status) {
			return fmt.Errorf("%w: %s to %s", errBadStatus, election.Status, req.Status)
		}
		if req.Status == models.StatusActive {
			candidates, err := tx.ListCandidates(ctx, electionID)
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				return errNoCandidates
			}
		}
		return tx.SetElectionStatus(ctx, electionID, req.Status)
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	case errors.Is(err, errBadStatus), errors.Is(err, errNoCandidates):
		middleware.ErrorResponse(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		slog.Error("failed to set election status", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update election")
		return
	}

	slog.Info("election status changed", "election_id", electionID, "status", req.Status)
	h.monitor.Invalidate(ctx, electionID)

	middleware.JSONResponse(w, http.StatusOK, map[string]string{"status": req.Status})
}

func canTransition(from, to string) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CloseElection handles POST /admin/elections/{id}/close
// Closes voting and freezes the final results in a snapshot
func (h *ElectionHandler) CloseElection(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, r.PathValue("id"))
}

func (h *ElectionHandler) close(w http.ResponseWriter, r *http.Request, electionID string) {
	ctx := r.Context()
	closedAt := time.Now().UTC()

	snapshotID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate snapshot ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close election")
		return
	}

	var snapshot *models.ResultSnapshot
	err = h.store.InTx(ctx, func(tx *store.Store) error {
		election, err := tx.GetElection(ctx, electionID)
		if err != nil {
			return err
		}
		if !canTransition(election.Status, models.StatusClosed) {
			return fmt.Errorf("%w: %s to %s", errBadStatus, election.Status, models.StatusClosed)
		}
		if err := tx.SetElectionStatus(ctx, electionID, models.StatusClosed); err != nil {
			return err
		}

		res, err := results.Compute(ctx, tx, electionID)
		if err != nil {
			return err
		}
		res.Election.FinalSnapshotID = &snapshotID

		snapshot = &models.ResultSnapshot{
			ID:         snapshotID,
			ElectionID: electionID,
			ComputedAt: closedAt,
			Results:    *res,
		}
		if err := tx.SaveSnapshot(ctx, snapshot); err != nil {
			return err
		}
		return tx.SetFinalSnapshot(ctx, electionID, snapshotID)
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	case errors.Is(err, errBadStatus):
		middleware.ErrorResponse(w, http.StatusConflict, "Only active elections can be closed")
		return
	case err != nil:
		slog.Error("failed to close election", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close election")
		return
	}

	res := snapshot.Results.Resolution
	slog.Info("election closed",
		"election_id", electionID,
		"snapshot_id", snapshotID,
		"has_tie", res.HasTie,
		"meets_threshold", res.MeetsThreshold,
		"tally_consistent", snapshot.Results.TallyConsistent,
	)
	if !snapshot.Results.TallyConsistent {
		slog.Error("closed election tallies disagree with ballot ledger", "election_id", electionID)
	}

	h.monitor.Invalidate(ctx, electionID)
	h.publishClosed(ctx, snapshot)

	middleware.JSONResponse(w, http.StatusOK, models.CloseElectionResponse{
		ClosedAt: closedAt,
		Snapshot: *snapshot,
	})
}

func (h *ElectionHandler) publishClosed(ctx context.Context, snapshot *models.ResultSnapshot) {
	res := snapshot.Results.Resolution
	winners := make([]string, 0, len(res.Winners))
	for _, c := range res.Winners {
		winners = append(winners, c.CandidateID)
	}

	ev := events.Event{
		Type:       events.TypeElectionClosed,
		ElectionID: snapshot.ElectionID,
		SnapshotID: snapshot.ID,
		Winners:    winners,
		HasTie:     res.HasTie,
		Threshold:  res.MeetsThreshold,
		At:         snapshot.ComputedAt,
	}
	if err := h.publisher.Publish(ctx, ev); err != nil {
		slog.Warn("failed to publish event", "type", ev.Type, "error", err)
	}
}

// CreateRunoff handles POST /admin/elections/{id}/runoff
// Starts the next round for a closed election that ended in a tie or
// without enough support. The new round waits for an admin to open it.
func (h *ElectionHandler) CreateRunoff(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	ctx := r.Context()

	runoffID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate election ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create runoff")
		return
	}

	var resp models.RunoffResponse
	err = h.store.InTx(ctx, func(tx *store.Store) error {
		prev, err := tx.GetElection(ctx, electionID)
		if err != nil {
			return err
		}
		if prev.Status != models.StatusClosed {
			return errNotClosed
		}

		res, err := results.Compute(ctx, tx, electionID)
		if err != nil {
			return err
		}
		seats, seeded, err := runoffField(prev, res.Resolution, res.Standings)
		if err != nil {
			return err
		}

		runoff := &models.Election{
			ID:              runoffID,
			Title:           fmt.Sprintf("%s (round %d)", stripRound(prev.Title), prev.Round+1),
			ElectionType:    prev.ElectionType,
			MaxSelections:   seats,
			Status:          models.StatusWaiting,
			WinningCriteria: prev.WinningCriteria,
			VillageID:       prev.VillageID,
			Position:        prev.Position,
			GroupID:         prev.GroupID,
			Round:           prev.Round + 1,
		}
		if err := tx.CreateElection(ctx, runoff); err != nil {
			return err
		}

		resp = models.RunoffResponse{ElectionID: runoffID, Round: runoff.Round, Candidates: []string{}}
		for _, s := range seeded {
			candidateID, err := auth.GenerateID(12)
			if err != nil {
				return err
			}
			c := &models.Candidate{ID: candidateID, ElectionID: runoffID, Name: s.Name}
			if err := tx.CreateCandidate(ctx, c); err != nil {
				return err
			}
			resp.Candidates = append(resp.Candidates, s.Name)
		}

		_, err = tx.CopyElectionAccess(ctx, electionID, runoffID)
		return err
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	case errors.Is(err, errNotClosed):
		middleware.ErrorResponse(w, http.StatusConflict, "Close the election before starting a runoff")
		return
	case errors.Is(err, errClearResult):
		middleware.ErrorResponse(w, http.StatusConflict, "Election has a clear result, no runoff needed")
		return
	case err != nil:
		slog.Error("failed to create runoff", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create runoff")
		return
	}

	slog.Info("runoff created", "election_id", electionID, "runoff_id", runoffID, "round", resp.Round)

	middleware.JSONResponse(w, http.StatusCreated, resp)
}

// runoffField picks the seats and candidates of the next round. A tie
// re-runs the tied candidates for the unresolved seats; a missed threshold
// re-runs every candidate that received votes.
func runoffField(prev *models.Election, res models.Resolution, standings []models.CandidateStanding) (int, []models.CandidateStanding, error) {
	if res.HasTie {
		return res.SeatsToResolve, res.TiedCandidates, nil
	}
	if !res.MeetsThreshold {
		var voted []models.CandidateStanding
		for _, s := range standings {
			if s.Votes > 0 {
				voted = append(voted, s)
			}
		}
		if len(voted) == 0 {
			voted = standings
		}
		return prev.MaxSelections, voted, nil
	}
	return 0, nil, errClearResult
}

// stripRound drops a trailing " (round N)" so titles do not stack
func stripRound(title string) string {
	if i := strings.LastIndex(title, " (round "); i > 0 && strings.HasSuffix(title, ")") {
		return title[:i]
	}
	return title
}

func (h *ElectionHandler) loadElection(ctx context.Context, w http.ResponseWriter, electionID string) (*models.Election, bool) {
	election, err := h.store.GetElection(ctx, electionID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return nil, false
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return nil, false
	}
	return election, true
}
