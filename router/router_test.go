// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lifecatcher9182/vote-system-sub000/events"
	"github.com/lifecatcher9182/vote-system-sub000/models"
	"github.com/lifecatcher9182/vote-system-sub000/testutil"
)

func newTestRouter(t *testing.T) (*http.ServeMux, *events.Recorder) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	pub := &events.Recorder{}
	return NewRouter(db, testutil.GetTestConfig(), nil, pub), pub
}

func TestHealthEndpoint(t *testing.T) {
	mux, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	mux, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	expected := "vote-system API v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/no-such-route", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", w.Code)
	}
}

func TestRouteExistence(t *testing.T) {
	mux, _ := newTestRouter(t)

	// 400, 401, 403, 404 are all valid responses depending on handler logic
	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/"},

		// Voter sessions
		{"POST", "/sessions"},
		{"GET", "/session"},
		{"GET", "/session/elections/test-id"},
		{"POST", "/session/elections/test-id/ballot"},

		// Administration
		{"POST", "/admin/elections"},
		{"POST", "/admin/elections/test-id/candidates"},
		{"POST", "/admin/elections/test-id/status"},
		{"POST", "/admin/elections/test-id/close"},
		{"POST", "/admin/elections/test-id/runoff"},
		{"GET", "/admin/elections/test-id/results"},
		{"POST", "/admin/codes"},
		{"DELETE", "/admin/codes/AB1234"},
		{"POST", "/admin/groups/officers/elections"},

		// Public results
		{"GET", "/elections/test-id/results"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code == http.StatusMethodNotAllowed {
				t.Errorf("Route %s %s returned 405, expected route handler to exist", tc.method, tc.path)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _ := newTestRouter(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/health"},
		{"DELETE", "/session"},
		{"GET", "/admin/elections/test-id/close"},
		{"PUT", "/admin/codes/AB1234"},
		{"POST", "/elections/test-id/results"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected 405 for %s %s, got %d", tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestGuards(t *testing.T) {
	mux, _ := newTestRouter(t)

	testCases := []struct {
		name    string
		method  string
		path    string
		headers map[string]string
	}{
		{"admin route without key", "POST", "/admin/elections", nil},
		{"admin route with wrong key", "GET", "/admin/elections/test-id/results", map[string]string{"X-Admin-Key": "wrong"}},
		{"voter route without token", "GET", "/session", nil},
		{"voter route with admin key", "GET", "/session", map[string]string{"X-Admin-Key": "test-admin-key"}},
		{"voter route with bad token", "POST", "/session/elections/test-id/ballot", map[string]string{"Authorization": "Bearer nope"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.MakeRequest(tc.method, tc.path, nil, tc.headers)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			testutil.AssertStatus(t, w, http.StatusUnauthorized)
		})
	}
}

func TestPathParameterExtraction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, nil, nil)

	electionID := testutil.CreateTestElection(t, db, testutil.ElectionOpts{})
	testutil.AddTestCandidate(t, db, electionID, "Kim")

	req := testutil.MakeRequest("GET", "/admin/elections/"+electionID+"/results", nil,
		map[string]string{"X-Admin-Key": cfg.AdminKey})
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var res models.ElectionResults
	testutil.AssertJSON(t, w, &res)
	if res.Election.ID != electionID {
		t.Errorf("Expected election %s, got %s", electionID, res.Election.ID)
	}
}

func TestVoterFlowPublishesEvents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	pub := &events.Recorder{}
	mux := NewRouter(db, testutil.GetTestConfig(), nil, pub)

	electionID := testutil.CreateTestElection(t, db, testutil.ElectionOpts{})
	kim := testutil.AddTestCandidate(t, db, electionID, "Kim")
	testutil.CreateTestCode(t, db, "AB1234", electionID)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/sessions", models.RedeemCodeRequest{Code: "ab1234"}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	var sess models.SessionResponse
	testutil.AssertJSON(t, w, &sess)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/session/elections/"+electionID+"/ballot",
		models.SubmitBallotRequest{CandidateIDs: []string{kim}},
		map[string]string{"Authorization": "Bearer " + sess.SessionToken}))
	testutil.AssertStatus(t, w, http.StatusCreated)

	cast := pub.OfType(events.TypeBallotCast)
	if len(cast) != 1 || cast[0].ElectionID != electionID {
		t.Fatalf("Expected one ballot.cast event, got %+v", cast)
	}
	if cast[0].CodeID != "" {
		t.Error("ballot.cast must not name the voter code")
	}
	if len(pub.OfType(events.TypeCodeUsed)) != 1 {
		t.Error("Expected a code.used event after the only ballot")
	}
}
