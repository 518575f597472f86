// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lifecatcher9182/vote-system-sub000/models"
)

const electionColumns = `e.id, e.title, e.election_type, e.max_selections, e.status,
       e.criteria_kind, e.criteria_percentage, e.criteria_base,
       e.village_id, e.position, e.group_id, e.round, e.final_snapshot_id, e.created_at`

func scanElection(row interface{ Scan(...any) error }) (*models.Election, error) {
	var e models.Election
	var pct sql.NullFloat64
	var base, villageID, position, groupID, snapshotID sql.NullString
	err := row.Scan(
		&e.ID, &e.Title, &e.ElectionType, &e.MaxSelections, &e.Status,
		&e.WinningCriteria.Kind, &pct, &base,
		&villageID, &position, &groupID, &e.Round, &snapshotID, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if pct.Valid {
		e.WinningCriteria.Percentage = pct.Float64
	}
	e.WinningCriteria.Base = base.String
	e.VillageID = stringPtr(villageID)
	e.Position = stringPtr(position)
	e.GroupID = stringPtr(groupID)
	e.FinalSnapshotID = stringPtr(snapshotID)
	return &e, nil
}

func (s *Store) CreateElection(ctx context.Context, e *models.Election) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Round == 0 {
		e.Round = 1
	}

	var pct sql.NullFloat64
	var base sql.NullString
	if e.WinningCriteria.Kind == models.CriteriaPercentage {
		pct = sql.NullFloat64{Float64: e.WinningCriteria.Percentage, Valid: true}
		base = sql.NullString{String: e.WinningCriteria.Base, Valid: true}
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO election (id, title, election_type, max_selections, status,
		                      criteria_kind, criteria_percentage, criteria_base,
		                      village_id, position, group_id, round, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, e.ID, e.Title, e.ElectionType, e.MaxSelections, e.Status,
		e.WinningCriteria.Kind, pct, base,
		e.VillageID, e.Position, e.GroupID, e.Round, e.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert election: %w", err)
	}
	return nil
}

func (s *Store) GetElection(ctx context.Context, id string) (*models.Election, error) {
	e, err := scanElection(s.q.QueryRowContext(ctx, `
		SELECT `+electionColumns+`
		FROM election e
		WHERE e.id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query election: %w", err)
	}
	return e, nil
}

// ListActiveElectionsForCode returns the code's accessible elections whose
// status is active, ordered by round then title.
func (s *Store) ListActiveElectionsForCode(ctx context.Context, codeID string) ([]models.Election, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+electionColumns+`
		FROM election e
		JOIN voter_code_election ce ON ce.election_id = e.id
		WHERE ce.code_id = $1 AND e.status = $2
		ORDER BY e.round, e.title, e.id
	`, codeID, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query active elections: %w", err)
	}
	defer rows.Close()

	elections := []models.Election{}
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		elections = append(elections, *e)
	}
	return elections, rows.Err()
}

func (s *Store) SetElectionStatus(ctx context.Context, id, status string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE election SET status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update election status: %w", err)
	}
	return affectedOne(res)
}

func (s *Store) SetElectionGroup(ctx context.Context, id, groupID string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE election SET group_id = $2 WHERE id = $1
	`, id, groupID)
	if err != nil {
		return fmt.Errorf("failed to update election group: %w", err)
	}
	return affectedOne(res)
}

func (s *Store) SetFinalSnapshot(ctx context.Context, electionID, snapshotID string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE election SET final_snapshot_id = $2 WHERE id = $1
	`, electionID, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to set final snapshot: %w", err)
	}
	return affectedOne(res)
}

func (s *Store) CreateCandidate(ctx context.Context, c *models.Candidate) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO candidate (id, election_id, name, vote_count)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.ElectionID, c.Name, 0)
	if err != nil {
		return fmt.Errorf("failed to insert candidate: %w", err)
	}
	c.VoteCount = 0
	return nil
}

// ListCandidates returns the election's candidates ordered by name.
func (s *Store) ListCandidates(ctx context.Context, electionID string) ([]models.Candidate, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, election_id, name, vote_count
		FROM candidate
		WHERE election_id = $1
		ORDER BY name, id
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.Name, &c.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// IncrementVoteCount adds one vote to a candidate in a single statement so
// concurrent ballots never lose an update.
func (s *Store) IncrementVoteCount(ctx context.Context, electionID, candidateID string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE candidate SET vote_count = vote_count + 1
		WHERE id = $1 AND election_id = $2
	`, candidateID, electionID)
	if err != nil {
		return fmt.Errorf("failed to increment vote count: %w", err)
	}
	return affectedOne(res)
}
