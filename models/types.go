// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Election status constants
const (
	StatusWaiting     = "waiting"
	StatusRegistering = "registering"
	StatusActive      = "active"
	StatusClosed      = "closed"
)

// Election and voter code types
const (
	TypeDelegate = "delegate"
	TypeOfficer  = "officer"
)

// Winning criteria kinds
const (
	CriteriaPlurality        = "plurality"
	CriteriaAbsoluteMajority = "absolute_majority"
	CriteriaPercentage       = "percentage"
)

// Percentage criteria bases
const (
	BaseAttended = "attended"
	BaseIssued   = "issued"
)

// Submission outcomes
const (
	OutcomeMoreElectionsRemain = "more_elections_remain"
	OutcomeAllComplete         = "all_complete"
)

// Domain types

// WinningCriteria is a tagged variant. Percentage and Base are only
// meaningful when Kind is CriteriaPercentage.
type WinningCriteria struct {
	Kind       string  `json:"kind"`
	Percentage float64 `json:"percentage,omitempty"`
	Base       string  `json:"base,omitempty"`
}

type Election struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	ElectionType    string          `json:"election_type"`
	MaxSelections   int             `json:"max_selections"`
	Status          string          `json:"status"`
	WinningCriteria WinningCriteria `json:"winning_criteria"`
	VillageID       *string         `json:"village_id,omitempty"`
	Position        *string         `json:"position,omitempty"`
	GroupID         *string         `json:"group_id,omitempty"`
	Round           int             `json:"round"`
	FinalSnapshotID *string         `json:"final_snapshot_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type Candidate struct {
	ID         string `json:"id"`
	ElectionID string `json:"election_id"`
	Name       string `json:"name"`
	VoteCount  int    `json:"vote_count"`
}

type VoterCode struct {
	ID                  string     `json:"id"`
	Code                string     `json:"code"`
	CodeType            string     `json:"code_type"`
	VillageID           *string    `json:"village_id,omitempty"`
	GroupID             *string    `json:"group_id,omitempty"`
	AccessibleElections []string   `json:"accessible_elections"`
	IsUsed              bool       `json:"is_used"`
	FirstLoginAt        *time.Time `json:"first_login_at,omitempty"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	UsedAt              *time.Time `json:"used_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// CanAccess reports whether electionID is in the code's accessible set.
func (c VoterCode) CanAccess(electionID string) bool {
	for _, id := range c.AccessibleElections {
		if id == electionID {
			return true
		}
	}
	return false
}

// BallotEvent is the single cast-or-abstain event for one
// (election, voter code) pair. Its ID doubles as the voter's receipt.
type BallotEvent struct {
	ID          string    `json:"id"`
	ElectionID  string    `json:"election_id"`
	VoterCodeID string    `json:"-"`
	IsAbstain   bool      `json:"is_abstain"`
	CastAt      time.Time `json:"cast_at"`
}

type Ballot struct {
	ID          string  `json:"id"`
	EventID     string  `json:"event_id"`
	ElectionID  string  `json:"election_id"`
	VoterCodeID string  `json:"-"` // Never expose in JSON
	CandidateID *string `json:"candidate_id,omitempty"`
	IsAbstain   bool    `json:"is_abstain"`
}

// Result types

type Participation struct {
	TotalCodes    int     `json:"total_codes"`
	AttendedCodes int     `json:"attended_codes"`
	TotalVotes    int     `json:"total_votes"`
	UniqueVoters  int     `json:"unique_voters"`
	Abstentions   int     `json:"abstentions"`
	Turnout       float64 `json:"turnout"` // unique voters / total codes
}

type CandidateStanding struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Votes       int    `json:"votes"`
	Rank        int    `json:"rank"` // 1-indexed, equal tallies share a rank
	Elected     bool   `json:"elected"`
	Tied        bool   `json:"tied"`
}

type Resolution struct {
	Winners          []CandidateStanding `json:"winners"`
	ConfirmedWinners []CandidateStanding `json:"confirmed_winners"`
	TiedCandidates   []CandidateStanding `json:"tied_candidates"`
	HasTie           bool                `json:"has_tie"`
	MeetsThreshold   bool                `json:"meets_threshold"`
	RequiredVotes    int                 `json:"required_votes"`
	SeatsToResolve   int                 `json:"seats_to_resolve"`
}

type ElectionResults struct {
	Election        Election            `json:"election"`
	Participation   Participation       `json:"participation"`
	Standings       []CandidateStanding `json:"standings"`
	Resolution      Resolution          `json:"resolution"`
	TallyConsistent bool                `json:"tally_consistent"`
	InputsHash      string              `json:"inputs_hash"`
	ComputedAt      time.Time           `json:"computed_at"`
	RefreshAfter    int                 `json:"refresh_after_seconds,omitempty"`
}

type ResultSnapshot struct {
	ID         string          `json:"id"`
	ElectionID string          `json:"election_id"`
	ComputedAt time.Time       `json:"computed_at"`
	Results    ElectionResults `json:"results"`
}

// Request types

type RedeemCodeRequest struct {
	Code string `json:"code"`
}

type SubmitBallotRequest struct {
	CandidateIDs []string `json:"candidate_ids"`
	Abstain      bool     `json:"abstain"`
}

type CreateElectionRequest struct {
	Title           string          `json:"title"`
	ElectionType    string          `json:"election_type"`
	MaxSelections   int             `json:"max_selections"`
	WinningCriteria WinningCriteria `json:"winning_criteria"`
	VillageID       *string         `json:"village_id,omitempty"`
	Position        *string         `json:"position,omitempty"`
	GroupID         *string         `json:"group_id,omitempty"`
}

type AddCandidateRequest struct {
	Name string `json:"name"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type GenerateCodesRequest struct {
	Count       int      `json:"count"`
	CodeType    string   `json:"code_type"`
	VillageID   *string  `json:"village_id,omitempty"`
	GroupID     *string  `json:"group_id,omitempty"`
	ElectionIDs []string `json:"election_ids"`
}

type AddGroupElectionRequest struct {
	ElectionID string `json:"election_id"`
}

// Response types

type SessionElection struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Position      *string `json:"position,omitempty"`
	MaxSelections int     `json:"max_selections"`
	Voted         bool    `json:"voted"`
}

type SessionResponse struct {
	SessionToken string            `json:"session_token,omitempty"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	CodeType     string            `json:"code_type"`
	Elections    []SessionElection `json:"elections"`
	Complete     bool              `json:"complete"`
}

type BallotFormResponse struct {
	Election      Election    `json:"election"`
	Candidates    []Candidate `json:"candidates"`
	MaxSelections int         `json:"max_selections"`
}

type SubmitBallotResponse struct {
	ReceiptID string `json:"receipt_id"`
	Outcome   string `json:"outcome"`
	Message   string `json:"message"`
}

type CreateElectionResponse struct {
	ElectionID string `json:"election_id"`
}

type AddCandidateResponse struct {
	CandidateID string `json:"candidate_id"`
}

type GenerateCodesResponse struct {
	Codes []string `json:"codes"`
}

type AddGroupElectionResponse struct {
	CodesUpdated int `json:"codes_updated"`
}

type CloseElectionResponse struct {
	ClosedAt time.Time      `json:"closed_at"`
	Snapshot ResultSnapshot `json:"snapshot"`
}

type RunoffResponse struct {
	ElectionID string   `json:"election_id"`
	Round      int      `json:"round"`
	Candidates []string `json:"candidates"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
