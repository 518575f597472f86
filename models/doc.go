// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Domain Types

  - Election: status, max selections, winning criteria, optional group
  - Candidate: name and accumulated vote count
  - VoterCode: single-use credential with its accessible elections
  - BallotEvent: the one cast-or-abstain event per (election, code)
  - Ballot: one row per selected candidate, or one abstain row
  - WinningCriteria: plurality, absolute_majority, or percentage{percentage, base}

# Result Types

  - Participation: total/attended codes, votes, unique voters
  - CandidateStanding: tally and shared rank
  - Resolution: winners, confirmed winners, tied candidates, threshold
  - ElectionResults: everything the monitor view shows
  - ResultSnapshot: results frozen when an election closes

# Constants

Election status values:

	StatusWaiting     = "waiting"
	StatusRegistering = "registering"
	StatusActive      = "active"
	StatusClosed      = "closed"

Election and code types:

	TypeDelegate = "delegate"
	TypeOfficer  = "officer"

Winning criteria:

	CriteriaPlurality        = "plurality"
	CriteriaAbsoluteMajority = "absolute_majority"
	CriteriaPercentage       = "percentage"
*/
package models
