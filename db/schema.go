// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open connects to the database named by dbType ("postgres" or "sqlite")
// and verifies the connection.
func Open(dbType, url string) (*sql.DB, error) {
	driver := "sqlite"
	if dbType == "postgres" {
		driver = "postgres"
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite" {
		// SQLite allows a single writer; serialize through one connection
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(25)
		conn.SetConnMaxLifetime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The same text runs on Postgres and SQLite.
const schema = `
-- Elections
CREATE TABLE IF NOT EXISTS election (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    election_type TEXT NOT NULL CHECK (election_type IN ('delegate', 'officer')),
    max_selections INTEGER NOT NULL CHECK (max_selections >= 1),
    status TEXT NOT NULL DEFAULT 'waiting' CHECK (status IN ('waiting', 'registering', 'active', 'closed')),
    criteria_kind TEXT NOT NULL DEFAULT 'plurality' CHECK (criteria_kind IN ('plurality', 'absolute_majority', 'percentage')),
    criteria_percentage DOUBLE PRECISION,
    criteria_base TEXT,
    village_id TEXT,
    position TEXT,
    group_id TEXT,
    round INTEGER NOT NULL DEFAULT 1,
    final_snapshot_id TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_election_status ON election(status);
CREATE INDEX IF NOT EXISTS idx_election_group_id ON election(group_id);

-- Candidates
CREATE TABLE IF NOT EXISTS candidate (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    vote_count INTEGER NOT NULL DEFAULT 0 CHECK (vote_count >= 0)
);

CREATE INDEX IF NOT EXISTS idx_candidate_election_id ON candidate(election_id);

-- Voter codes
CREATE TABLE IF NOT EXISTS voter_code (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    code_type TEXT NOT NULL CHECK (code_type IN ('delegate', 'officer')),
    village_id TEXT,
    group_id TEXT,
    is_used BOOLEAN NOT NULL DEFAULT FALSE,
    first_login_at TIMESTAMP,
    last_login_at TIMESTAMP,
    used_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_voter_code_group_id ON voter_code(group_id);

-- Accessible elections per code
CREATE TABLE IF NOT EXISTS voter_code_election (
    code_id TEXT NOT NULL REFERENCES voter_code(id) ON DELETE CASCADE,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    PRIMARY KEY (code_id, election_id)
);

CREATE INDEX IF NOT EXISTS idx_voter_code_election_election_id ON voter_code_election(election_id);

-- Ballot events: at most one per (election, code)
CREATE TABLE IF NOT EXISTS ballot_event (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    voter_code_id TEXT NOT NULL REFERENCES voter_code(id) ON DELETE CASCADE,
    is_abstain BOOLEAN NOT NULL,
    cast_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (election_id, voter_code_id)
);

CREATE INDEX IF NOT EXISTS idx_ballot_event_voter_code_id ON ballot_event(voter_code_id);

-- Ballot rows: one per selected candidate, or a single abstain row
CREATE TABLE IF NOT EXISTS ballot (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL REFERENCES ballot_event(id) ON DELETE CASCADE,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    voter_code_id TEXT NOT NULL REFERENCES voter_code(id) ON DELETE CASCADE,
    candidate_id TEXT REFERENCES candidate(id) ON DELETE CASCADE,
    is_abstain BOOLEAN NOT NULL,
    UNIQUE (election_id, voter_code_id, candidate_id),
    CHECK ((is_abstain AND candidate_id IS NULL) OR (NOT is_abstain AND candidate_id IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_ballot_election_id ON ballot(election_id);
CREATE INDEX IF NOT EXISTS idx_ballot_candidate_id ON ballot(candidate_id);

-- Result Snapshots
CREATE TABLE IF NOT EXISTS result_snapshot (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    computed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_result_snapshot_election_id ON result_snapshot(election_id);
`
