// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package results

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/lifecatcher9182/vote-system-sub000/models"
	"github.com/lifecatcher9182/vote-system-sub000/store"
)

// Compute aggregates participation and tallies for one election and
// resolves its winners. All reads share one snapshot so the tally check
// compares like with like. It never mutates state.
func Compute(ctx context.Context, st *store.Store, electionID string) (*models.ElectionResults, error) {
	var (
		election     *models.Election
		candidates   []models.Candidate
		codes        []models.VoterCode
		ballots      []models.Ballot
		uniqueVoters int
	)
	err := st.InSnapshot(ctx, func(tx *store.Store) error {
		var err error
		if election, err = tx.GetElection(ctx, electionID); err != nil {
			return err
		}
		if candidates, err = tx.ListCandidates(ctx, electionID); err != nil {
			return err
		}
		if codes, err = tx.ListCodesForElection(ctx, electionID); err != nil {
			return err
		}
		if ballots, err = tx.ListBallots(ctx, electionID); err != nil {
			return err
		}
		uniqueVoters, err = tx.CountDistinctVoters(ctx, electionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	p := models.Participation{
		TotalCodes:   len(codes),
		UniqueVoters: uniqueVoters,
	}
	for _, c := range codes {
		if c.FirstLoginAt != nil {
			p.AttendedCodes++
		}
	}

	ledger := make(map[string]int, len(candidates))
	for _, b := range ballots {
		if b.IsAbstain {
			p.Abstentions++
			continue
		}
		p.TotalVotes++
		if b.CandidateID != nil {
			ledger[*b.CandidateID]++
		}
	}
	if p.TotalCodes > 0 {
		p.Turnout = float64(p.UniqueVoters) / float64(p.TotalCodes)
	}

	resolution := ResolveWinners(candidates, election.MaxSelections, election.WinningCriteria, p.AttendedCodes, p.TotalCodes)

	return &models.ElectionResults{
		Election:        *election,
		Participation:   p,
		Standings:       markStandings(Rank(candidates), resolution),
		Resolution:      resolution,
		TallyConsistent: tallyConsistent(candidates, ledger),
		InputsHash:      inputsHash(ballots),
		ComputedAt:      time.Now().UTC(),
	}, nil
}

// markStandings copies the elected and tied flags from the resolution onto
// the ranked standings.
func markStandings(standings []models.CandidateStanding, res models.Resolution) []models.CandidateStanding {
	elected := make(map[string]bool, len(res.ConfirmedWinners))
	for _, w := range res.ConfirmedWinners {
		elected[w.CandidateID] = true
	}
	tied := make(map[string]bool, len(res.TiedCandidates))
	for _, c := range res.TiedCandidates {
		tied[c.CandidateID] = true
	}

	for i := range standings {
		standings[i].Elected = elected[standings[i].CandidateID]
		standings[i].Tied = tied[standings[i].CandidateID]
	}
	return standings
}

// tallyConsistent reports whether every stored vote count equals the
// number of ledger rows naming that candidate.
func tallyConsistent(candidates []models.Candidate, ledger map[string]int) bool {
	seen := 0
	for _, c := range candidates {
		if c.VoteCount != ledger[c.ID] {
			return false
		}
		seen += ledger[c.ID]
	}

	total := 0
	for _, n := range ledger {
		total += n
	}
	return seen == total
}

// inputsHash fingerprints the ballot rows a result was computed from.
func inputsHash(ballots []models.Ballot) string {
	ids := make([]string, len(ballots))
	for i, b := range ballots {
		ids[i] = b.ID
	}
	sort.Strings(ids)

	h := sha256.New()
	for _, id := range ids {
		fmt.Fprintf(h, "%s\n", id)
	}
	return hex.EncodeToString(h.Sum(nil))
}
