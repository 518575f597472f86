// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lifecatcher9182/vote-system-sub000/events"
	"github.com/lifecatcher9182/vote-system-sub000/models"
	"github.com/lifecatcher9182/vote-system-sub000/testutil"
)

func (f *fixture) admin(h http.HandlerFunc, method, path string, body any, pathValues ...string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest(method, path, body, map[string]string{"X-Admin-Key": f.cfg.AdminKey})
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func (f *fixture) redeem(t *testing.T, code string) {
	t.Helper()

	w := httptest.NewRecorder()
	f.voting.Redeem(w, testutil.MakeRequest("POST", "/sessions", models.RedeemCodeRequest{Code: code}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)
}

func (f *fixture) setStatus(t *testing.T, electionID, status string) *httptest.ResponseRecorder {
	t.Helper()
	return f.admin(f.elections.SetStatus, "POST", "/admin/elections/"+electionID+"/status",
		models.SetStatusRequest{Status: status}, "id", electionID)
}

func (f *fixture) closeElection(t *testing.T, electionID string) models.CloseElectionResponse {
	t.Helper()

	w := f.admin(f.elections.CloseElection, "POST", "/admin/elections/"+electionID+"/close", nil, "id", electionID)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.CloseElectionResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}

func TestCreateElection(t *testing.T) {
	f := setup(t)

	testCases := []struct {
		name     string
		req      models.CreateElectionRequest
		expected int
		criteria models.WinningCriteria
	}{
		{
			name:     "plurality by default",
			req:      models.CreateElectionRequest{Title: "Village Delegate", ElectionType: models.TypeDelegate, MaxSelections: 1},
			expected: http.StatusCreated,
			criteria: models.WinningCriteria{Kind: models.CriteriaPlurality},
		},
		{
			name: "percentage defaults to attended base",
			req: models.CreateElectionRequest{Title: "Chair", ElectionType: models.TypeOfficer, MaxSelections: 1,
				WinningCriteria: models.WinningCriteria{Kind: models.CriteriaPercentage, Percentage: 66.67}},
			expected: http.StatusCreated,
			criteria: models.WinningCriteria{Kind: models.CriteriaPercentage, Percentage: 66.67, Base: models.BaseAttended},
		},
		{
			name: "absolute majority",
			req: models.CreateElectionRequest{Title: "Treasurer", ElectionType: models.TypeOfficer, MaxSelections: 1,
				WinningCriteria: models.WinningCriteria{Kind: models.CriteriaAbsoluteMajority}},
			expected: http.StatusCreated,
			criteria: models.WinningCriteria{Kind: models.CriteriaAbsoluteMajority},
		},
		{
			name:     "missing title",
			req:      models.CreateElectionRequest{ElectionType: models.TypeDelegate, MaxSelections: 1},
			expected: http.StatusBadRequest,
		},
		{
			name:     "unknown type",
			req:      models.CreateElectionRequest{Title: "X", ElectionType: "mayor", MaxSelections: 1},
			expected: http.StatusBadRequest,
		},
		{
			name:     "zero seats",
			req:      models.CreateElectionRequest{Title: "X", ElectionType: models.TypeDelegate},
			expected: http.StatusBadRequest,
		},
		{
			name: "percentage above 100",
			req: models.CreateElectionRequest{Title: "X", ElectionType: models.TypeOfficer, MaxSelections: 1,
				WinningCriteria: models.WinningCriteria{Kind: models.CriteriaPercentage, Percentage: 120}},
			expected: http.StatusBadRequest,
		},
		{
			name: "unknown criteria",
			req: models.CreateElectionRequest{Title: "X", ElectionType: models.TypeOfficer, MaxSelections: 1,
				WinningCriteria: models.WinningCriteria{Kind: "borda"}},
			expected: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.admin(f.elections.CreateElection, "POST", "/admin/elections", tc.req)
			testutil.AssertStatus(t, w, tc.expected)
			if tc.expected != http.StatusCreated {
				return
			}

			var resp models.CreateElectionResponse
			testutil.AssertJSON(t, w, &resp)

			election, err := f.st.GetElection(t.Context(), resp.ElectionID)
			if err != nil {
				t.Fatalf("Created election not found: %v", err)
			}
			if election.Status != models.StatusWaiting {
				t.Errorf("Expected status waiting, got %s", election.Status)
			}
			if election.Round != 1 {
				t.Errorf("Expected round 1, got %d", election.Round)
			}
			if election.WinningCriteria != tc.criteria {
				t.Errorf("Expected criteria %+v, got %+v", tc.criteria, election.WinningCriteria)
			}
		})
	}
}

func TestCreateElectionGrantsGroup(t *testing.T) {
	f := setup(t)

	seed := testutil.CreateTestElection(t, f.db, testutil.ElectionOpts{})
	codeID := testutil.CreateTestCode(t, f.db, "AB1234", seed)
	testutil.SetGroup(t, f.db, codeID, "officers")

	group := "officers"
	w := f.admin(f.elections.CreateElection, "POST", "/admin/elections", models.CreateElectionRequest{
		Title: "Secretary", ElectionType: models.TypeOfficer, MaxSelections: 1, GroupID: &group,
	})
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.CreateElectionResponse
	testutil.AssertJSON(t, w, &resp)

	code, err := f.st.GetCode(t.Context(), codeID)
	if err != nil {
		t.Fatal(err)
	}
	if !code.CanAccess(resp.ElectionID) {
		t.Error("Group code should be able to access the new election")
	}
}

func TestAddCandidate(t *testing.T) {
	f := setup(t)

	waiting := testutil.CreateTestElection(t, f.db, testutil.ElectionOpts{Status: models.StatusWaiting})
	active := testutil.CreateTestElection(t, f.db, testutil.ElectionOpts{Status: models.StatusActive})

	testCases := []struct {
		name       string
		electionID string
		body       models.AddCandidateRequest
		expected   int
	}{
		{"waiting election", waiting, models.AddCandidateRequest{Name: "Kim"}, http.StatusCreated},
		{"blank name", waiting, models.AddCandidateRequest{Name: "  "}, http.StatusBadRequest},
		{"voting already open", active, models.AddCandidateRequest{Name: "Lee"}, http.StatusConflict},
		{"unknown election", "missing", models.AddCandidateRequest{Name: "Park"}, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.admin(f.elections.AddCandidate, "POST", "/admin/elections/"+tc.electionID+"/candidates",
				tc.body, "id", tc.electionID)
			testutil.AssertStatus(t, w, tc.expected)
		})
	}

	candidates, err := f.st.ListCandidates(t.Context(), waiting)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 || candidates[0].Name != "Kim" {
		t.Errorf("Expected only Kim, got %+v", candidates)
	}
}

func TestSetStatusTransitions(t *testing.T) {
	f := setup(t)

	empty := testutil.CreateTestElection(t, f.db, testutil.ElectionOpts{Status: models.StatusWaiting})
	e := testutil.CreateTestElection(t, f.db, testutil.ElectionOpts{Status: models.StatusWaiting})
	testutil.AddTestCandidate(t, f.db, e, "Kim")

	testutil.AssertStatus(t, f.setStatus(t, empty, models.StatusActive), http.StatusConflict)
	testutil.AssertStatus(t, f.setStatus(t, e, "paused"), http.StatusConflict)
	testutil.AssertStatus(t, f.setStatus(t, e, models.StatusRegistering), http.StatusOK)
	testutil.AssertStatus(t, f.setStatus(t, e, models.StatusWaiting), http.StatusConflict)
	testutil.AssertStatus(t, f.setStatus(t, e, models.StatusActive), http.StatusOK)
	testutil.AssertStatus(t, f.setStatus(t, e, models.StatusClosed), http.StatusOK)
	testutil.AssertStatus(t, f.setStatus(t, e, models.StatusActive), http.StatusConflict)
	testutil.AssertStatus(t, f.setStatus(t, "missing", models.StatusActive), http.StatusNotFound)

	election, err := f.st.GetElection(t.Context(), e)
	if err != nil {
		t.Fatal(err)
	}
	if election.Status != models.StatusClosed {
		t.Errorf("Expected closed, got %s", election.Status)
	}
	if election.FinalSnapshotID == nil {
		t.Error("Closing through the status route should still freeze a snapshot")
	}
}

func TestCloseElection(t *testing.T) {
	f := setup(t)

	e := testutil.CreateTestElection(t, f.db, testutil.ElectionOpts{})
	kim := testutil.AddTestCandidate(t, f.db, e, "Kim")
	lee := testutil.AddTestCandidate(t, f.db, e, "Lee")
	for i, pick := range []string{kim, kim, lee} {
		codeID := testutil.CreateTestCode(t, f.db, "AA100"+string(rune('0'+i)), e)
		testutil.AssertStatus(t, f.submit(t, codeID, e, models.SubmitBallotRequest{CandidateIDs: []string{pick}}), http.StatusCreated)
	}

	resp := f.closeElection(t, e)

	res := resp.Snapshot.Results
	if res.Election.Status != models.StatusClosed {
		t.Errorf("Snapshot should record the closed status, got %s", res.Election.Status)
	}
	if len(res.Resolution.Winners) != 1 || res.Resolution.Winners[0].CandidateID != kim {
		t.Errorf("Expected Kim to win, got %+v", res.Resolution.Winners)
	}
	if res.Participation.UniqueVoters != 3 || res.Participation.TotalCodes != 3 {
		t.Errorf("Unexpected participation %+v", res.Participation)
	}
	if !res.TallyConsistent {
		t.Error("Tallies should agree with the ballot ledger")
	}

	closed := f.pub.OfType(events.TypeElectionClosed)
	if len(closed) != 1 {
		t.Fatalf("Expected 1 election.closed event, got %d", len(closed))
	}
	if closed[0].SnapshotID != resp.Snapshot.ID || len(closed[0].Winners) != 1 || closed[0].Winners[0] != kim {
		t.Errorf("Unexpected close event %+v", closed[0])
	}

	// Closing twice is rejected and keeps the original snapshot
	w := f.admin(f.elections.CloseElection, "POST", "/admin/elections/"+e+"/close", nil, "id", e)
	testutil.AssertStatus(t, w, http.StatusConflict)

	election, err := f.st.GetElection(t.Context(), e)
	if err != nil {
		t.Fatal(err)
	}
	if election.FinalSnapshotID == nil || *election.FinalSnapshotID != resp.Snapshot.ID {
		t.Error("Final snapshot should not change after a second close")
	}
}

func TestCloseElectionNotActive(t *testing.T) {
	f := setup(t)

	waiting := testutil.CreateTestElection(t, f.db, testutil.ElectionOpts{Status: models.StatusWaiting})

	w := f.admin(f.elections.CloseElection, "POST", "/admin/elections/"+waiting+"/close", nil, "id", waiting)
	testutil.AssertStatus(t, w, http.StatusConflict)

	w = f.admin(f.elections.CloseElection, "POST", "/admin/elections/missing/close", nil, "id", "missing")
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestCreateRunoffAfterTie(t *testing.T) {
	f := setup(t)

	group := "officers"
	e := testutil.CreateTestElection(t, f.db, testutil.ElectionOpts{Title: "Chair", Type: models.TypeOfficer, GroupID: &group})
	kim := testutil.AddTestCandidate(t, f.db, e, "Kim")
	lee := testutil.AddTestCandidate(t, f.db, e, "Lee")
	testutil.AddTestCandidate(t, f.db, e, "Park")

	var codes []string
	for i, pick := range []string{kim, lee} {
		codeID := testutil.CreateTestCode(t, f.db, "AA200"+string(rune('0'+i)), e)
		codes = append(codes, codeID)
		testutil.AssertStatus(t, f.submit(t, codeID, e, models.SubmitBallotRequest{CandidateIDs: []string{pick}}), http.StatusCreated)
	}

	// A runoff needs a closed election
	w := f.admin(f.elections.CreateRunoff, "POST", "/admin/elections/"+e+"/runoff", nil, "id", e)
	testutil.AssertStatus(t, w, http.StatusConflict)

	resp := f.closeElection(t, e)
	if !resp.Snapshot.Results.Resolution.HasTie {
		t.Fatal("Expected a tie between Kim and Lee")
	}

	w = f.admin(f.elections.CreateRunoff, "POST", "/admin/elections/"+e+"/runoff", nil, "id", e)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var runoff models.RunoffResponse
	testutil.AssertJSON(t, w, &runoff)

	if runoff.Round != 2 {
		t.Errorf("Expected round 2, got %d", runoff.Round)
	}
	if len(runoff.Candidates) != 2 {
		t.Fatalf("Expected the two tied candidates, got %v", runoff.Candidates)
	}

	election, err := f.st.GetElection(t.Context(), runoff.ElectionID)
	if err != nil {
		t.Fatal(err)
	}
	if election.Status != models.StatusWaiting || election.MaxSelections != 1 {
		t.Errorf("Unexpected runoff election %+v", election)
	}
	if election.Title != "Chair (round 2)" {
		t.Errorf("Unexpected runoff title %q", election.Title)
	}
	if election.GroupID == nil || *election.GroupID != group {
		t.Error("Runoff should stay in the same group")
	}

	candidates, err := f.st.ListCandidates(t.Context(), runoff.ElectionID)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range candidates {
		if c.VoteCount != 0 {
			t.Errorf("Runoff candidate %s starts with %d votes", c.Name, c.VoteCount)
		}
		if c.Name == "Park" {
			t.Error("Park was not tied and should not be in the runoff")
		}
	}

	for _, codeID := range codes {
		code, err := f.st.GetCode(t.Context(), codeID)
		if err != nil {
			t.Fatal(err)
		}
		if !code.CanAccess(runoff.ElectionID) {
			t.Errorf("Code %s should be able to vote in the runoff", codeID)
		}
	}
}

func TestCreateRunoffClearResult(t *testing.T) {
	f := setup(t)

	e := testutil.CreateTestElection(t, f.db, testutil.ElectionOpts{})
	kim := testutil.AddTestCandidate(t, f.db, e, "Kim")
	testutil.AddTestCandidate(t, f.db, e, "Lee")
	codeID := testutil.CreateTestCode(t, f.db, "AB1234", e)
	testutil.AssertStatus(t, f.submit(t, codeID, e, models.SubmitBallotRequest{CandidateIDs: []string{kim}}), http.StatusCreated)

	f.closeElection(t, e)

	w := f.admin(f.elections.CreateRunoff, "POST", "/admin/elections/"+e+"/runoff", nil, "id", e)
	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestCreateRunoffMissedThreshold(t *testing.T) {
	f := setup(t)

	e := testutil.CreateTestElection(t, f.db, testutil.ElectionOpts{
		Title:    "Chair (round 2)",
		Criteria: models.WinningCriteria{Kind: models.CriteriaAbsoluteMajority},
	})
	kim := testutil.AddTestCandidate(t, f.db, e, "Kim")
	lee := testutil.AddTestCandidate(t, f.db, e, "Lee")
	testutil.AddTestCandidate(t, f.db, e, "Park")

	if _, err := f.db.Exec(`UPDATE election SET round = 2 WHERE id = $1`, e); err != nil {
		t.Fatal(err)
	}

	// Kim leads 2-1 but four codes attended, so a majority needs 3
	for i, pick := range []string{kim, kim, lee, ""} {
		code := "AA300" + string(rune('0'+i))
		codeID := testutil.CreateTestCode(t, f.db, code, e)
		f.redeem(t, code)
		if pick != "" {
			testutil.AssertStatus(t, f.submit(t, codeID, e, models.SubmitBallotRequest{CandidateIDs: []string{pick}}), http.StatusCreated)
		}
	}

	resp := f.closeElection(t, e)
	if resp.Snapshot.Results.Resolution.MeetsThreshold {
		t.Fatalf("Expected the majority threshold to be missed: %+v", resp.Snapshot.Results.Resolution)
	}

	w := f.admin(f.elections.CreateRunoff, "POST", "/admin/elections/"+e+"/runoff", nil, "id", e)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var runoff models.RunoffResponse
	testutil.AssertJSON(t, w, &runoff)

	if len(runoff.Candidates) != 2 {
		t.Errorf("Expected the two candidates with votes, got %v", runoff.Candidates)
	}

	election, err := f.st.GetElection(t.Context(), runoff.ElectionID)
	if err != nil {
		t.Fatal(err)
	}
	if election.Title != "Chair (round 3)" {
		t.Errorf("Expected round suffix to be replaced, got %q", election.Title)
	}
}
