// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lifecatcher9182/vote-system-sub000/auth"
	"github.com/lifecatcher9182/vote-system-sub000/cliparse"
	"github.com/lifecatcher9182/vote-system-sub000/db"
	"github.com/lifecatcher9182/vote-system-sub000/models"
)

// TestDBURL is an in-memory SQLite database. db.Open limits SQLite to a
// single connection, so the database lives as long as the *sql.DB.
const TestDBURL = ":memory:"

// SetupTestDB creates a fresh test database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open("sqlite", TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.CreateSchema(conn); err != nil {
		conn.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:            3318,
		DatabaseURL:     TestDBURL,
		DatabaseType:    "sqlite",
		AdminKey:        "test-admin-key",
		SessionSecret:   "test-session-secret",
		SessionTTL:      30 * time.Minute,
		ResultsCacheTTL: 10 * time.Second,
		MonitorRefresh:  30 * time.Second,
	}
}

// ElectionOpts tweaks CreateTestElection. Zero values mean: delegate type,
// active, one seat, plurality.
type ElectionOpts struct {
	Title         string
	Type          string
	Status        string
	MaxSelections int
	Criteria      models.WinningCriteria
	GroupID       *string
}

// CreateTestElection inserts an election and returns its ID
func CreateTestElection(t *testing.T, db *sql.DB, opts ElectionOpts) string {
	t.Helper()

	if opts.Title == "" {
		opts.Title = "Test Election"
	}
	if opts.Type == "" {
		opts.Type = models.TypeDelegate
	}
	if opts.Status == "" {
		opts.Status = models.StatusActive
	}
	if opts.MaxSelections == 0 {
		opts.MaxSelections = 1
	}
	if opts.Criteria.Kind == "" {
		opts.Criteria.Kind = models.CriteriaPlurality
	}

	var pct *float64
	var base *string
	if opts.Criteria.Kind == models.CriteriaPercentage {
		pct = &opts.Criteria.Percentage
		base = &opts.Criteria.Base
	}

	electionID, _ := auth.GenerateID(16)
	_, err := db.Exec(`
		INSERT INTO election (id, title, election_type, max_selections, status,
		                      criteria_kind, criteria_percentage, criteria_base, group_id, round, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10)
	`, electionID, opts.Title, opts.Type, opts.MaxSelections, opts.Status,
		opts.Criteria.Kind, pct, base, opts.GroupID, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	return electionID
}

// AddTestCandidate adds a candidate to an election and returns its ID
func AddTestCandidate(t *testing.T, db *sql.DB, electionID, name string) string {
	t.Helper()

	candidateID, _ := auth.GenerateID(12)
	_, err := db.Exec(`
		INSERT INTO candidate (id, election_id, name, vote_count)
		VALUES ($1, $2, $3, 0)
	`, candidateID, electionID, name)
	if err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}

	return candidateID
}

// CreateTestCode issues a delegate voter code with access to electionIDs
// and returns its ID
func CreateTestCode(t *testing.T, db *sql.DB, code string, electionIDs ...string) string {
	t.Helper()

	codeID, _ := auth.GenerateID(16)
	_, err := db.Exec(`
		INSERT INTO voter_code (id, code, code_type, village_id, is_used, created_at)
		VALUES ($1, $2, 'delegate', 'village-1', $3, $4)
	`, codeID, code, false, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test code: %v", err)
	}

	for _, electionID := range electionIDs {
		_, err := db.Exec(`
			INSERT INTO voter_code_election (code_id, election_id)
			VALUES ($1, $2)
		`, codeID, electionID)
		if err != nil {
			t.Fatalf("Failed to grant test election: %v", err)
		}
	}

	return codeID
}

// SetGroup tags a voter code with a group
func SetGroup(t *testing.T, db *sql.DB, codeID, groupID string) {
	t.Helper()

	if _, err := db.Exec(`UPDATE voter_code SET group_id = $2 WHERE id = $1`, codeID, groupID); err != nil {
		t.Fatalf("Failed to set code group: %v", err)
	}
}

// VoteCount returns a candidate's stored tally
func VoteCount(t *testing.T, db *sql.DB, candidateID string) int {
	t.Helper()

	var n int
	if err := db.QueryRow(`SELECT vote_count FROM candidate WHERE id = $1`, candidateID).Scan(&n); err != nil {
		t.Fatalf("Failed to read vote count: %v", err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
