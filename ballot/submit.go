// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lifecatcher9182/vote-system-sub000/events"
	"github.com/lifecatcher9182/vote-system-sub000/models"
	"github.com/lifecatcher9182/vote-system-sub000/store"
)

// Receipt confirms a committed ballot. ID is the ballot event id.
type Receipt struct {
	ID         string
	ElectionID string
	Outcome    string
	CastAt     time.Time
}

// Submit records the voter's choice for one election. Validation happens
// before any write. The ballot event, ballot rows, tally increments and the
// used flag commit in one transaction; the unique (election, code) key on
// ballot events turns a racing second submit into ErrDuplicateVote, and the
// code's row lock keeps parallel submits for different elections from each
// missing the other when deciding whether the code is used.
func (c *Controller) Submit(ctx context.Context, sess *Session, electionID string, choice Choice) (*Receipt, error) {
	if sess.Voted[electionID] {
		return nil, ErrDuplicateVote
	}
	entry, ok := sess.entry(electionID)
	if !ok || !sess.Code.CanAccess(electionID) {
		return nil, ErrNotAccessible
	}

	candidates, err := c.store.ListCandidates(ctx, electionID)
	if err != nil {
		return nil, storeFailure("list candidates", err)
	}
	ids, err := validate(entry.Election, candidates, choice)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		ID:         uuid.NewString(),
		ElectionID: electionID,
		Outcome:    models.OutcomeMoreElectionsRemain,
		CastAt:     c.now(),
	}
	codeID := sess.Code.ID

	err = c.store.InTx(ctx, func(tx *store.Store) error {
		if err := tx.LockCode(ctx, codeID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotAccessible
			}
			return storeFailure("lock code", err)
		}

		election, err := tx.GetElection(ctx, electionID)
		if err != nil {
			return storeFailure("get election", err)
		}
		if election.Status != models.StatusActive {
			return ErrNotAccessible
		}

		exists, err := tx.HasBallotEvent(ctx, electionID, codeID)
		if err != nil {
			return storeFailure("check ballot event", err)
		}
		if exists {
			return ErrDuplicateVote
		}

		ev := &models.BallotEvent{
			ID:          receipt.ID,
			ElectionID:  electionID,
			VoterCodeID: codeID,
			IsAbstain:   choice.Abstain,
			CastAt:      receipt.CastAt,
		}
		if err := tx.InsertBallotEvent(ctx, ev); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrDuplicateVote
			}
			return storeFailure("insert ballot event", err)
		}

		if choice.Abstain {
			row := &models.Ballot{
				ID:          uuid.NewString(),
				EventID:     ev.ID,
				ElectionID:  electionID,
				VoterCodeID: codeID,
				IsAbstain:   true,
			}
			if err := tx.InsertBallot(ctx, row); err != nil {
				return storeFailure("insert abstain row", err)
			}
		}

		for _, candidateID := range ids {
			candidateID := candidateID
			row := &models.Ballot{
				ID:          uuid.NewString(),
				EventID:     ev.ID,
				ElectionID:  electionID,
				VoterCodeID: codeID,
				CandidateID: &candidateID,
			}
			if err := tx.InsertBallot(ctx, row); err != nil {
				return storeFailure("insert ballot row", err)
			}
			if err := tx.IncrementVoteCount(ctx, electionID, candidateID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return ErrUnknownCandidate
				}
				return storeFailure("increment tally", err)
			}
		}

		complete, err := completeAfter(ctx, tx, codeID)
		if err != nil {
			return err
		}
		if complete {
			if err := tx.MarkUsed(ctx, codeID, receipt.CastAt); err != nil {
				return storeFailure("mark code used", err)
			}
			receipt.Outcome = models.OutcomeAllComplete
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateVote) {
			sess.Voted[electionID] = true
			entry.Voted = true
		}
		if !isBallotError(err) {
			err = storeFailure("submit ballot", err)
		}
		return nil, err
	}

	sess.Voted[electionID] = true
	entry.Voted = true
	if receipt.Outcome == models.OutcomeAllComplete {
		sess.Code.IsUsed = true
		sess.Code.UsedAt = &receipt.CastAt
	}

	slog.Info("ballot recorded",
		"election_id", electionID,
		"receipt_id", receipt.ID,
		"abstain", choice.Abstain,
		"outcome", receipt.Outcome,
	)
	c.afterCommit(ctx, codeID, receipt, choice.Abstain, len(ids))

	return receipt, nil
}

// completeAfter recomputes, inside the transaction, whether the code has a
// ballot event for every active election it can access.
func completeAfter(ctx context.Context, tx *store.Store, codeID string) (bool, error) {
	voted, err := tx.VotedElections(ctx, codeID)
	if err != nil {
		return false, storeFailure("load voted set", err)
	}
	active, err := tx.ListActiveElectionsForCode(ctx, codeID)
	if err != nil {
		return false, storeFailure("list elections", err)
	}
	for _, e := range active {
		if !voted[e.ID] {
			return false, nil
		}
	}
	return true, nil
}

// afterCommit publishes events and drops cached results. Failures are
// logged only; the ballot is already committed.
func (c *Controller) afterCommit(ctx context.Context, codeID string, r *Receipt, abstain bool, selections int) {
	if c.results != nil {
		c.results.Invalidate(ctx, r.ElectionID)
	}

	cast := events.Event{
		Type:       events.TypeBallotCast,
		ElectionID: r.ElectionID,
		ReceiptID:  r.ID,
		Abstain:    abstain,
		Selections: selections,
		At:         r.CastAt,
	}
	if err := c.publisher.Publish(ctx, cast); err != nil {
		slog.Warn("failed to publish event", "type", cast.Type, "error", err)
	}

	if r.Outcome != models.OutcomeAllComplete {
		return
	}
	used := events.Event{Type: events.TypeCodeUsed, CodeID: codeID, At: r.CastAt}
	if err := c.publisher.Publish(ctx, used); err != nil {
		slog.Warn("failed to publish event", "type", used.Type, "error", err)
	}
}
