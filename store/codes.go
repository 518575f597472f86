// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lifecatcher9182/vote-system-sub000/models"
)

const codeColumns = `id, code, code_type, village_id, group_id, is_used,
       first_login_at, last_login_at, used_at, created_at`

func scanCode(row interface{ Scan(...any) error }) (*models.VoterCode, error) {
	var c models.VoterCode
	var villageID, groupID sql.NullString
	var firstLogin, lastLogin, usedAt sql.NullTime
	err := row.Scan(
		&c.ID, &c.Code, &c.CodeType, &villageID, &groupID, &c.IsUsed,
		&firstLogin, &lastLogin, &usedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.VillageID = stringPtr(villageID)
	c.GroupID = stringPtr(groupID)
	c.FirstLoginAt = timePtr(firstLogin)
	c.LastLoginAt = timePtr(lastLogin)
	c.UsedAt = timePtr(usedAt)
	return &c, nil
}

// FindByCode looks up a voter code by its normalized code string and loads
// its accessible elections.
func (s *Store) FindByCode(ctx context.Context, code string) (*models.VoterCode, error) {
	c, err := scanCode(s.q.QueryRowContext(ctx, `
		SELECT `+codeColumns+`
		FROM voter_code
		WHERE code = $1
	`, code))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query voter code: %w", err)
	}

	if c.AccessibleElections, err = s.accessibleElections(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCode loads a voter code by id.
func (s *Store) GetCode(ctx context.Context, id string) (*models.VoterCode, error) {
	c, err := scanCode(s.q.QueryRowContext(ctx, `
		SELECT `+codeColumns+`
		FROM voter_code
		WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query voter code: %w", err)
	}

	if c.AccessibleElections, err = s.accessibleElections(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) accessibleElections(ctx context.Context, codeID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT election_id FROM voter_code_election
		WHERE code_id = $1
		ORDER BY election_id
	`, codeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accessible elections: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan accessible election: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CodeExists reports whether a normalized code string is already issued.
func (s *Store) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM voter_code WHERE code = $1)
	`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check voter code: %w", err)
	}
	return exists, nil
}

// CreateCode inserts a voter code together with its accessible elections,
// which must not repeat. A code string collision returns ErrDuplicate.
func (s *Store) CreateCode(ctx context.Context, c *models.VoterCode) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO voter_code (id, code, code_type, village_id, group_id, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.Code, c.CodeType, c.VillageID, c.GroupID, false, c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert voter code: %w", err)
	}

	for _, electionID := range c.AccessibleElections {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO voter_code_election (code_id, election_id)
			VALUES ($1, $2)
		`, c.ID, electionID)
		if err != nil {
			return fmt.Errorf("failed to grant election %s: %w", electionID, err)
		}
	}
	return nil
}

// MarkFirstLogin sets first_login_at and last_login_at to ts only if the
// code has never logged in. It reports whether this call set them.
func (s *Store) MarkFirstLogin(ctx context.Context, id string, ts time.Time) (bool, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE voter_code
		SET first_login_at = $2, last_login_at = $2
		WHERE id = $1 AND first_login_at IS NULL
	`, id, ts)
	if err != nil {
		return false, fmt.Errorf("failed to mark first login: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) MarkLastLogin(ctx context.Context, id string, ts time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE voter_code SET last_login_at = $2 WHERE id = $1
	`, id, ts)
	if err != nil {
		return fmt.Errorf("failed to mark last login: %w", err)
	}
	return affectedOne(res)
}

// LockCode takes the code's row lock for the rest of the transaction.
// Submits for the same code then run one after another, so each sees the
// ballot events the others committed. The no-op update locks the row on
// Postgres and takes the write lock on SQLite.
func (s *Store) LockCode(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE voter_code SET id = id WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to lock voter code: %w", err)
	}
	return affectedOne(res)
}

func (s *Store) MarkUsed(ctx context.Context, id string, ts time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE voter_code SET is_used = $2, used_at = $3 WHERE id = $1
	`, id, true, ts)
	if err != nil {
		return fmt.Errorf("failed to mark code used: %w", err)
	}
	return affectedOne(res)
}

// ClearUsed resets the used flag after the code's accessible-active set grew.
func (s *Store) ClearUsed(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE voter_code SET is_used = $2, used_at = NULL WHERE id = $1
	`, id, false)
	if err != nil {
		return fmt.Errorf("failed to clear used flag: %w", err)
	}
	return affectedOne(res)
}

// ListCodesForElection returns every code whose accessible set contains
// electionID. AccessibleElections is not populated on the results.
func (s *Store) ListCodesForElection(ctx context.Context, electionID string) ([]models.VoterCode, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT c.id, c.code, c.code_type, c.village_id, c.group_id, c.is_used,
		       c.first_login_at, c.last_login_at, c.used_at, c.created_at
		FROM voter_code c
		JOIN voter_code_election ce ON ce.code_id = c.id
		WHERE ce.election_id = $1
		ORDER BY c.code
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query codes for election: %w", err)
	}
	defer rows.Close()

	codes := []models.VoterCode{}
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voter code: %w", err)
		}
		codes = append(codes, *c)
	}
	return codes, rows.Err()
}

// GrantElectionToGroup widens the accessible set of every code issued for
// groupID to include electionID. It returns the number of codes widened.
func (s *Store) GrantElectionToGroup(ctx context.Context, groupID, electionID string) (int, error) {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO voter_code_election (code_id, election_id)
		SELECT c.id, CAST($2 AS TEXT) FROM voter_code c
		WHERE c.group_id = $1
		  AND NOT EXISTS (
		      SELECT 1 FROM voter_code_election ce
		      WHERE ce.code_id = c.id AND ce.election_id = $2
		  )
	`, groupID, electionID)
	if err != nil {
		return 0, fmt.Errorf("failed to widen group codes: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CopyElectionAccess grants toElectionID to every code that can access
// fromElectionID.
func (s *Store) CopyElectionAccess(ctx context.Context, fromElectionID, toElectionID string) (int, error) {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO voter_code_election (code_id, election_id)
		SELECT ce.code_id, CAST($2 AS TEXT) FROM voter_code_election ce
		WHERE ce.election_id = $1
		  AND NOT EXISTS (
		      SELECT 1 FROM voter_code_election x
		      WHERE x.code_id = ce.code_id AND x.election_id = $2
		  )
	`, fromElectionID, toElectionID)
	if err != nil {
		return 0, fmt.Errorf("failed to copy election access: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteCode removes a code that has never cast a ballot. Codes that are
// used, or that already hold ballot events, are kept and ErrCodeUsed is
// returned; deleting them would orphan candidate tallies.
func (s *Store) DeleteCode(ctx context.Context, code string) error {
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM voter_code
		WHERE code = $1 AND is_used = $2
		  AND NOT EXISTS (
		      SELECT 1 FROM ballot_event be WHERE be.voter_code_id = voter_code.id
		  )
	`, code, false)
	if err != nil {
		return fmt.Errorf("failed to delete voter code: %w", err)
	}
	if err := affectedOne(res); !errors.Is(err, ErrNotFound) {
		return err
	}

	exists, err := s.CodeExists(ctx, code)
	if err != nil {
		return err
	}
	if exists {
		return ErrCodeUsed
	}
	return ErrNotFound
}
