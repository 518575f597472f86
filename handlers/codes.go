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

	"github.com/lifecatcher9182/vote-system-sub000/auth"
	"github.com/lifecatcher9182/vote-system-sub000/middleware"
	"github.com/lifecatcher9182/vote-system-sub000/models"
	"github.com/lifecatcher9182/vote-system-sub000/results"
	"github.com/lifecatcher9182/vote-system-sub000/store"
)

const (
	maxCodesPerRequest = 1000
	maxCodeAttempts    = 10
)

var errUnknownElection = errors.New("unknown election")

type CodeHandler struct {
	store   *store.Store
	monitor *results.Monitor
}

func NewCodeHandler(st *store.Store, monitor *results.Monitor) *CodeHandler {
	return &CodeHandler{store: st, monitor: monitor}
}

// GenerateCodes handles POST /admin/codes
// Issues a batch of voter codes bound to a set of elections
func (h *CodeHandler) GenerateCodes(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateCodesRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Count < 1 || req.Count > maxCodesPerRequest {
		middleware.ErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("count must be between 1 and %d", maxCodesPerRequest))
		return
	}
	if req.CodeType != models.TypeDelegate && req.CodeType != models.TypeOfficer {
		middleware.ErrorResponse(w, http.StatusBadRequest, "code_type must be delegate or officer")
		return
	}
	if req.CodeType == models.TypeDelegate && (req.VillageID == nil || *req.VillageID == "") {
		middleware.ErrorResponse(w, http.StatusBadRequest, "village_id is required for delegate codes")
		return
	}

	electionIDs := dedupe(req.ElectionIDs)
	if len(electionIDs) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_ids must not be empty")
		return
	}

	generate := auth.GenerateOfficerCode
	if req.CodeType == models.TypeDelegate {
		generate = auth.GenerateDelegateCode
	}

	ctx := r.Context()
	codes := make([]string, 0, req.Count)
	err := h.store.InTx(ctx, func(tx *store.Store) error {
		for _, id := range electionIDs {
			if _, err := tx.GetElection(ctx, id); errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s", errUnknownElection, id)
			} else if err != nil {
				return err
			}
		}

		for i := 0; i < req.Count; i++ {
			code, err := issueCode(ctx, tx, generate, &models.VoterCode{
				CodeType:            req.CodeType,
				VillageID:           req.VillageID,
				GroupID:             req.GroupID,
				AccessibleElections: electionIDs,
			})
			if err != nil {
				return err
			}
			codes = append(codes, code)
		}
		return nil
	})
	if errors.Is(err, errUnknownElection) {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("failed to generate codes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to generate codes")
		return
	}

	slog.Info("voter codes generated", "count", len(codes), "type", req.CodeType, "elections", len(electionIDs))

	middleware.JSONResponse(w, http.StatusCreated, models.GenerateCodesResponse{Codes: codes})
}

// issueCode draws code strings until one is free and stores it. Checking
// first keeps collisions from reaching the insert, which would abort a
// Postgres transaction.
func issueCode(ctx context.Context, tx *store.Store, generate func() (string, error), c *models.VoterCode) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generate()
		if err != nil {
			return "", err
		}
		exists, err := tx.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if exists {
			continue
		}

		id, err := auth.GenerateID(12)
		if err != nil {
			return "", err
		}
		c.ID = id
		c.Code = code
		if err := tx.CreateCode(ctx, c); err != nil {
			return "", err
		}
		return code, nil
	}
	return "", errors.New("could not find a free voter code")
}

// DeleteCode handles DELETE /admin/codes/{code}
func (h *CodeHandler) DeleteCode(w http.ResponseWriter, r *http.Request) {
	code := auth.NormalizeCode(r.PathValue("code"))
	if code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "code is required")
		return
	}

	err := h.store.DeleteCode(r.Context(), code)
	switch {
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Voter code not found")
		return
	case errors.Is(err, store.ErrCodeUsed):
		middleware.ErrorResponse(w, http.StatusConflict, "Voter code has already voted and cannot be deleted")
		return
	case err != nil:
		slog.Error("failed to delete code", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete code")
		return
	}

	slog.Info("voter code deleted")
	w.WriteHeader(http.StatusNoContent)
}

// AddElectionToGroup handles POST /admin/groups/{group}/elections
// Puts an election in a group and opens it to every code of that group
func (h *CodeHandler) AddElectionToGroup(w http.ResponseWriter, r *http.Request) {
	groupID := strings.TrimSpace(r.PathValue("group"))
	if groupID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "group is required")
		return
	}

	var req models.AddGroupElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ElectionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	ctx := r.Context()
	var updated int
	err := h.store.InTx(ctx, func(tx *store.Store) error {
		if err := tx.SetElectionGroup(ctx, req.ElectionID, groupID); err != nil {
			return err
		}
		n, err := tx.GrantElectionToGroup(ctx, groupID, req.ElectionID)
		updated = n
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to add election to group", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update group")
		return
	}

	slog.Info("election added to group", "group_id", groupID, "election_id", req.ElectionID, "codes_updated", updated)
	h.monitor.Invalidate(ctx, req.ElectionID)

	middleware.JSONResponse(w, http.StatusOK, models.AddGroupElectionResponse{CodesUpdated: updated})
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
