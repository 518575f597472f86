// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lifecatcher9182/vote-system-sub000/auth"
	"github.com/lifecatcher9182/vote-system-sub000/ballot"
	"github.com/lifecatcher9182/vote-system-sub000/cliparse"
	"github.com/lifecatcher9182/vote-system-sub000/middleware"
	"github.com/lifecatcher9182/vote-system-sub000/models"
)

type VotingHandler struct {
	ctrl *ballot.Controller
	cfg  cliparse.Config
}

func NewVotingHandler(ctrl *ballot.Controller, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{ctrl: ctrl, cfg: cfg}
}

// Redeem handles POST /sessions
// Exchanges a voter code for a session token
func (h *VotingHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req models.RedeemCodeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "code is required")
		return
	}

	sess, err := h.ctrl.Redeem(r.Context(), req.Code)
	if err != nil {
		writeBallotError(w, err)
		return
	}

	token, err := auth.NewSessionToken(h.cfg.SessionSecret, sess.Code.ID, h.cfg.SessionTTL)
	if err != nil {
		slog.Error("failed to issue session token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	slog.Info("voter session started", "code_id", sess.Code.ID, "elections", len(sess.Elections))

	resp := sessionResponse(sess)
	resp.SessionToken = token.Token
	resp.ExpiresAt = &token.Exp
	middleware.JSONResponse(w, http.StatusCreated, resp)
}

// GetSession handles GET /session
// Lists the session's active elections and which are done
func (h *VotingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.resume(w, r)
	if !ok {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, sessionResponse(sess))
}

// GetBallotForm handles GET /session/elections/{id}
// Returns the candidates and selection limit for one election
func (h *VotingHandler) GetBallotForm(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id is required")
		return
	}

	sess, ok := h.resume(w, r)
	if !ok {
		return
	}

	form, err := h.ctrl.SelectElection(r.Context(), sess, electionID)
	if err != nil {
		writeBallotError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.BallotFormResponse{
		Election:      form.Election,
		Candidates:    hideTallies(form.Candidates),
		MaxSelections: form.Election.MaxSelections,
	})
}

// SubmitBallot handles POST /session/elections/{id}/ballot
func (h *VotingHandler) SubmitBallot(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id is required")
		return
	}

	var req models.SubmitBallotRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	sess, ok := h.resume(w, r)
	if !ok {
		return
	}

	receipt, err := h.ctrl.Submit(r.Context(), sess, electionID, ballot.Choice{
		CandidateIDs: req.CandidateIDs,
		Abstain:      req.Abstain,
	})
	if err != nil {
		writeBallotError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitBallotResponse{
		ReceiptID: receipt.ID,
		Outcome:   receipt.Outcome,
		Message:   outcomeMessage(sess),
	})
}

// resume rebuilds the session of the code named by the session token
func (h *VotingHandler) resume(w http.ResponseWriter, r *http.Request) (*ballot.Session, bool) {
	codeID, ok := middleware.CodeID(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Session token required")
		return nil, false
	}

	sess, err := h.ctrl.Resume(r.Context(), codeID)
	if errors.Is(err, ballot.ErrInvalidCode) {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Voter code no longer exists")
		return nil, false
	}
	if err != nil {
		writeBallotError(w, err)
		return nil, false
	}
	return sess, true
}

func sessionResponse(sess *ballot.Session) models.SessionResponse {
	elections := make([]models.SessionElection, 0, len(sess.Elections))
	for _, e := range sess.Elections {
		elections = append(elections, models.SessionElection{
			ID:            e.Election.ID,
			Title:         e.Election.Title,
			Position:      e.Election.Position,
			MaxSelections: e.Election.MaxSelections,
			Voted:         e.Voted,
		})
	}
	return models.SessionResponse{
		CodeType:  sess.Code.CodeType,
		Elections: elections,
		Complete:  sess.Complete(),
	}
}

// hideTallies strips running vote counts from candidates shown to voters
func hideTallies(candidates []models.Candidate) []models.Candidate {
	out := make([]models.Candidate, len(candidates))
	for i, c := range candidates {
		c.VoteCount = 0
		out[i] = c
	}
	return out
}

func outcomeMessage(sess *ballot.Session) string {
	remaining := 0
	for _, e := range sess.Elections {
		if !e.Voted {
			remaining++
		}
	}
	switch remaining {
	case 0:
		return "All ballots recorded. Thank you for voting."
	case 1:
		return "Ballot recorded. 1 election remaining."
	default:
		return fmt.Sprintf("Ballot recorded. %d elections remaining.", remaining)
	}
}

// writeBallotError maps the ballot error taxonomy to HTTP responses with a
// message the voter can act on
func writeBallotError(w http.ResponseWriter, err error) {
	var countErr *ballot.SelectionCountError

	switch {
	case errors.Is(err, ballot.ErrInvalidCode):
		middleware.ErrorResponse(w, http.StatusNotFound, "Voter code not found, check it and try again")
	case errors.Is(err, ballot.ErrNoActiveElections):
		middleware.ErrorResponse(w, http.StatusConflict, "No elections are open for this code")
	case errors.Is(err, ballot.ErrAlreadyVoted), errors.Is(err, ballot.ErrDuplicateVote):
		middleware.ErrorResponse(w, http.StatusConflict, "You have already voted in this election")
	case errors.Is(err, ballot.ErrNotAccessible):
		middleware.ErrorResponse(w, http.StatusForbidden, "This election is not open to your code")
	case errors.As(err, &countErr):
		middleware.ErrorResponse(w, http.StatusBadRequest, countErr.Error())
	case errors.Is(err, ballot.ErrSelectionCountMismatch),
		errors.Is(err, ballot.ErrSelectionLimit),
		errors.Is(err, ballot.ErrUnknownCandidate):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ballot.ErrStoreFailure):
		slog.Error("ballot store failure", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, ballot.ErrStoreFailure.Error())
	default:
		slog.Error("unexpected ballot error", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Something went wrong, please try again")
	}
}
