// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package results

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/lifecatcher9182/vote-system-sub000/models"
)

// minPercentDecimals is the coarsest precision a percentage is read at, so
// whole percentages keep their exact meaning.
const minPercentDecimals = 2

// ResolveWinners applies the winning criteria to the candidates' tallies and
// partitions them into confirmed winners and tied candidates. It is a pure
// function of its inputs. Ties and failed thresholds are reported, never
// broken.
func ResolveWinners(candidates []models.Candidate, maxSelections int, criteria models.WinningCriteria, attendedCodes, totalCodes int) models.Resolution {
	res := models.Resolution{
		Winners:          []models.CandidateStanding{},
		ConfirmedWinners: []models.CandidateStanding{},
		TiedCandidates:   []models.CandidateStanding{},
		RequiredVotes:    RequiredVotes(criteria, attendedCodes, totalCodes),
	}
	if maxSelections < 1 {
		maxSelections = 1
	}

	var voted []models.CandidateStanding
	for _, c := range candidates {
		if c.VoteCount > 0 {
			voted = append(voted, standing(c))
		}
	}
	if len(voted) == 0 {
		res.MeetsThreshold = criteria.Kind == models.CriteriaPlurality
		return res
	}
	sortByVotes(voted)

	res.MeetsThreshold = meetsThreshold(criteria, voted[0].Votes, res.RequiredVotes, attendedCodes, totalCodes)
	if !res.MeetsThreshold {
		return res
	}

	if len(voted) < maxSelections {
		res.ConfirmedWinners = markElected(voted)
		res.Winners = res.ConfirmedWinners
		return res
	}

	// A tie exists only when more candidates sit exactly on the cutoff than
	// there are seats. Otherwise everyone at or above the cutoff is elected.
	cutoff := voted[maxSelections-1].Votes
	onCutoff, atOrAbove := 0, 0
	for _, s := range voted {
		if s.Votes == cutoff {
			onCutoff++
		}
		if s.Votes >= cutoff {
			atOrAbove++
		}
	}

	if onCutoff > maxSelections {
		for _, s := range voted {
			switch {
			case s.Votes > cutoff:
				s.Elected = true
				res.ConfirmedWinners = append(res.ConfirmedWinners, s)
			case s.Votes == cutoff:
				s.Tied = true
				res.TiedCandidates = append(res.TiedCandidates, s)
			}
		}
		res.HasTie = true
		res.SeatsToResolve = maxSelections - len(res.ConfirmedWinners)
		res.Winners = append(append([]models.CandidateStanding{}, res.ConfirmedWinners...), res.TiedCandidates...)
		return res
	}

	res.ConfirmedWinners = markElected(voted[:atOrAbove])
	res.Winners = res.ConfirmedWinners
	return res
}

// RequiredVotes is the minimum tally the leading candidate needs under the
// criteria. Plurality needs none.
func RequiredVotes(criteria models.WinningCriteria, attendedCodes, totalCodes int) int {
	switch criteria.Kind {
	case models.CriteriaAbsoluteMajority:
		return majorityBase(attendedCodes, totalCodes)/2 + 1
	case models.CriteriaPercentage:
		base := float64(percentageBase(criteria, attendedCodes, totalCodes))
		return int(math.Ceil(base * (criteria.Percentage - percentSlack(criteria.Percentage)) / 100))
	default:
		return 0
	}
}

// percentSlack is half a unit in the last decimal place the percentage was
// given with. A lead whose share rounds to the configured percentage at that
// precision meets it, so 66.67% of 30 requires 20 votes while 33.334% of
// 3000 still requires 1001.
func percentSlack(pct float64) float64 {
	text := strconv.FormatFloat(pct, 'f', -1, 64)
	decimals := minPercentDecimals
	if i := strings.IndexByte(text, '.'); i >= 0 {
		decimals = max(decimals, len(text)-i-1)
	}
	return 0.5 * math.Pow(10, -float64(decimals))
}

func meetsThreshold(criteria models.WinningCriteria, lead, required, attendedCodes, totalCodes int) bool {
	switch criteria.Kind {
	case models.CriteriaAbsoluteMajority:
		return lead > majorityBase(attendedCodes, totalCodes)/2
	case models.CriteriaPercentage:
		return lead >= required
	default:
		return true
	}
}

func majorityBase(attendedCodes, totalCodes int) int {
	if attendedCodes > 0 {
		return attendedCodes
	}
	return totalCodes
}

func percentageBase(criteria models.WinningCriteria, attendedCodes, totalCodes int) int {
	if criteria.Base == models.BaseAttended && attendedCodes > 0 {
		return attendedCodes
	}
	return totalCodes
}

// Rank orders candidates by tally, highest first. Equal tallies share a
// rank and the next lower tally takes the following rank (10, 8, 8, 3 ranks
// as 1, 2, 2, 3).
func Rank(candidates []models.Candidate) []models.CandidateStanding {
	standings := make([]models.CandidateStanding, len(candidates))
	for i, c := range candidates {
		standings[i] = standing(c)
	}
	sortByVotes(standings)

	rank := 0
	for i := range standings {
		if i == 0 || standings[i].Votes < standings[i-1].Votes {
			rank++
		}
		standings[i].Rank = rank
	}
	return standings
}

func standing(c models.Candidate) models.CandidateStanding {
	return models.CandidateStanding{
		CandidateID: c.ID,
		Name:        c.Name,
		Votes:       c.VoteCount,
	}
}

// sortByVotes sorts by tally descending. Name and id only make the display
// order deterministic; they never decide who is elected.
func sortByVotes(s []models.CandidateStanding) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Votes != s[j].Votes {
			return s[i].Votes > s[j].Votes
		}
		if s[i].Name != s[j].Name {
			return s[i].Name < s[j].Name
		}
		return s[i].CandidateID < s[j].CandidateID
	})
}

func markElected(s []models.CandidateStanding) []models.CandidateStanding {
	out := make([]models.CandidateStanding, len(s))
	for i, c := range s {
		c.Elected = true
		out[i] = c
	}
	return out
}
