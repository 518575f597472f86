// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lifecatcher9182/vote-system-sub000/models"
)

// HasBallotEvent reports whether the code already cast or abstained in the
// election. It is a fast path only; InsertBallotEvent is authoritative.
func (s *Store) HasBallotEvent(ctx context.Context, electionID, codeID string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM ballot_event
			WHERE election_id = $1 AND voter_code_id = $2
		)
	`, electionID, codeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check ballot event: %w", err)
	}
	return exists, nil
}

// VotedElections returns the ids of every election the code holds a ballot
// event for.
func (s *Store) VotedElections(ctx context.Context, codeID string) (map[string]bool, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT election_id FROM ballot_event WHERE voter_code_id = $1
	`, codeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query voted elections: %w", err)
	}
	defer rows.Close()

	voted := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan voted election: %w", err)
		}
		voted[id] = true
	}
	return voted, rows.Err()
}

// InsertBallotEvent records the single ballot event for (election, code).
// The UNIQUE (election_id, voter_code_id) constraint turns a second event
// into ErrDuplicate.
func (s *Store) InsertBallotEvent(ctx context.Context, ev *models.BallotEvent) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO ballot_event (id, election_id, voter_code_id, is_abstain, cast_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ev.ID, ev.ElectionID, ev.VoterCodeID, ev.IsAbstain, ev.CastAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert ballot event: %w", err)
	}
	return nil
}

func (s *Store) InsertBallot(ctx context.Context, b *models.Ballot) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO ballot (id, event_id, election_id, voter_code_id, candidate_id, is_abstain)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.ID, b.EventID, b.ElectionID, b.VoterCodeID, b.CandidateID, b.IsAbstain)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert ballot: %w", err)
	}
	return nil
}

// ListBallots returns every ballot row of the election ordered by id.
func (s *Store) ListBallots(ctx context.Context, electionID string) ([]models.Ballot, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, event_id, election_id, voter_code_id, candidate_id, is_abstain
		FROM ballot
		WHERE election_id = $1
		ORDER BY id
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ballots: %w", err)
	}
	defer rows.Close()

	ballots := []models.Ballot{}
	for rows.Next() {
		var b models.Ballot
		var candidateID sql.NullString
		if err := rows.Scan(&b.ID, &b.EventID, &b.ElectionID, &b.VoterCodeID, &candidateID, &b.IsAbstain); err != nil {
			return nil, fmt.Errorf("failed to scan ballot: %w", err)
		}
		b.CandidateID = stringPtr(candidateID)
		ballots = append(ballots, b)
	}
	return ballots, rows.Err()
}

func (s *Store) CountDistinctVoters(ctx context.Context, electionID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT voter_code_id) FROM ballot WHERE election_id = $1
	`, electionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count voters: %w", err)
	}
	return n, nil
}

// SaveSnapshot stores frozen results as JSON.
func (s *Store) SaveSnapshot(ctx context.Context, snap *models.ResultSnapshot) error {
	payload, err := json.Marshal(snap.Results)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO result_snapshot (id, election_id, computed_at, payload)
		VALUES ($1, $2, $3, $4)
	`, snap.ID, snap.ElectionID, snap.ComputedAt, string(payload))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

func (s *Store) GetSnapshot(ctx context.Context, id string) (*models.ResultSnapshot, error) {
	var snap models.ResultSnapshot
	var payload string
	err := s.q.QueryRowContext(ctx, `
		SELECT id, election_id, computed_at, payload
		FROM result_snapshot
		WHERE id = $1
	`, id).Scan(&snap.ID, &snap.ElectionID, &snap.ComputedAt, &payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &snap.Results); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot payload: %w", err)
	}
	return &snap, nil
}
