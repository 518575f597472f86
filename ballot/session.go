// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lifecatcher9182/vote-system-sub000/auth"
	"github.com/lifecatcher9182/vote-system-sub000/events"
	"github.com/lifecatcher9182/vote-system-sub000/models"
	"github.com/lifecatcher9182/vote-system-sub000/store"
)

// Invalidator drops cached results for an election after a ballot lands.
type Invalidator interface {
	Invalidate(ctx context.Context, electionID string)
}

// Controller turns voter codes into sessions and records their ballots.
// It keeps no state between calls; every session is rebuilt from the
// stores.
type Controller struct {
	store     *store.Store
	publisher events.Publisher
	results   Invalidator
	now       func() time.Time
}

// NewController wires a controller. publisher and results may be nil.
func NewController(st *store.Store, publisher events.Publisher, results Invalidator) *Controller {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Controller{
		store:     st,
		publisher: publisher,
		results:   results,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ElectionEntry is one active, accessible election in a session.
type ElectionEntry struct {
	Election models.Election
	Voted    bool
}

// Session is a voter code with its active elections and the set of
// elections it already cast a ballot event for. The voted set comes from
// the ballot ledger, never from the stored used flag.
type Session struct {
	Code      models.VoterCode
	Elections []ElectionEntry
	Voted     map[string]bool
}

// Complete reports whether every active election of the session has a
// ballot event.
func (s *Session) Complete() bool {
	for _, e := range s.Elections {
		if !e.Voted {
			return false
		}
	}
	return true
}

func (s *Session) entry(electionID string) (*ElectionEntry, bool) {
	for i := range s.Elections {
		if s.Elections[i].Election.ID == electionID {
			return &s.Elections[i], true
		}
	}
	return nil, false
}

// Redeem looks up a code, records attendance and opens a session.
// firstLoginAt is set exactly once; later redemptions only move
// lastLoginAt.
func (c *Controller) Redeem(ctx context.Context, rawCode string) (*Session, error) {
	code := auth.NormalizeCode(rawCode)
	if code == "" {
		return nil, ErrInvalidCode
	}

	vc, err := c.store.FindByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCode
	}
	if err != nil {
		return nil, storeFailure("find code", err)
	}

	now := c.now()
	first, err := c.store.MarkFirstLogin(ctx, vc.ID, now)
	if err != nil {
		return nil, storeFailure("mark first login", err)
	}
	if first {
		vc.FirstLoginAt = &now
		slog.Info("voter code attended", "code_id", vc.ID)
	} else if err := c.store.MarkLastLogin(ctx, vc.ID, now); err != nil {
		return nil, storeFailure("mark last login", err)
	}
	vc.LastLoginAt = &now

	return c.load(ctx, vc)
}

// Resume rebuilds the session of a code that already redeemed, without
// touching its login timestamps.
func (c *Controller) Resume(ctx context.Context, codeID string) (*Session, error) {
	vc, err := c.store.GetCode(ctx, codeID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCode
	}
	if err != nil {
		return nil, storeFailure("get code", err)
	}
	return c.load(ctx, vc)
}

func (c *Controller) load(ctx context.Context, vc *models.VoterCode) (*Session, error) {
	elections, err := c.store.ListActiveElectionsForCode(ctx, vc.ID)
	if err != nil {
		return nil, storeFailure("list elections", err)
	}
	if len(elections) == 0 {
		return nil, ErrNoActiveElections
	}

	voted, err := c.store.VotedElections(ctx, vc.ID)
	if err != nil {
		return nil, storeFailure("load voted set", err)
	}

	sess := &Session{Code: *vc, Voted: voted}
	for _, e := range elections {
		sess.Elections = append(sess.Elections, ElectionEntry{Election: e, Voted: voted[e.ID]})
	}

	if err := c.reconcileUsed(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// reconcileUsed brings the stored used flag in line with the ledger. It
// drifts when elections are activated or granted after the code finished.
func (c *Controller) reconcileUsed(ctx context.Context, sess *Session) error {
	complete := sess.Complete()
	if complete == sess.Code.IsUsed {
		return nil
	}

	if complete {
		now := c.now()
		if err := c.store.MarkUsed(ctx, sess.Code.ID, now); err != nil {
			return storeFailure("mark code used", err)
		}
		sess.Code.IsUsed = true
		sess.Code.UsedAt = &now
		return nil
	}

	if err := c.store.ClearUsed(ctx, sess.Code.ID); err != nil {
		return storeFailure("clear used flag", err)
	}
	slog.Info("voter code reopened", "code_id", sess.Code.ID)
	sess.Code.IsUsed = false
	sess.Code.UsedAt = nil
	return nil
}

// SelectElection opens the ballot form for one election of the session.
func (c *Controller) SelectElection(ctx context.Context, sess *Session, electionID string) (*Form, error) {
	if sess.Voted[electionID] {
		return nil, ErrAlreadyVoted
	}
	entry, ok := sess.entry(electionID)
	if !ok || !sess.Code.CanAccess(electionID) {
		return nil, ErrNotAccessible
	}

	candidates, err := c.store.ListCandidates(ctx, electionID)
	if err != nil {
		return nil, storeFailure("list candidates", err)
	}
	return NewForm(entry.Election, candidates), nil
}
