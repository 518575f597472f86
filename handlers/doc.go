// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the election API.

# Handler Types

  - VotingHandler: voter sessions, ballot forms and ballot submission
  - ElectionHandler: election lifecycle (create, candidates, status, close, runoff)
  - CodeHandler: voter code issuance, deletion and group access
  - ResultsHandler: live operator results and sealed public results

Handlers share a *store.Store and a *results.Monitor:

	st := store.New(db)
	monitor := results.NewMonitor(st, results.NewCache(rdb, cfg.ResultsCacheTTL), cfg.MonitorRefresh)
	votingHandler := handlers.NewVotingHandler(ballot.NewController(st, publisher, monitor), cfg)

# Election Lifecycle

Elections move waiting → registering → active → closed. Registering is
optional. Candidates can only be added before voting opens.

	POST /admin/elections                → CreateElection
	POST /admin/elections/{id}/candidates → AddCandidate
	POST /admin/elections/{id}/status     → SetStatus
	POST /admin/elections/{id}/close      → CloseElection (freezes a snapshot)
	POST /admin/elections/{id}/runoff     → CreateRunoff

Admin operations require the X-Admin-Key header.

# Voting Flow

	POST /sessions                        → Redeem (returns session_token)
	GET  /session                         → GetSession
	GET  /session/elections/{id}          → GetBallotForm
	POST /session/elections/{id}/ballot   → SubmitBallot

Voter operations require "Authorization: Bearer <session_token>". Each
code casts at most one ballot per election; a second attempt returns 409.

# Results

GET /admin/elections/{id}/results is live and carries a refresh hint.
GET /elections/{id}/results is 403 until the election closes, then serves
the frozen snapshot.
*/
package handlers
