// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the election API.

# Route Registration

	mux := router.NewRouter(db, cfg, rdb, publisher)

rdb (*redis.Client) and publisher (events.Publisher) may be nil.

# Endpoints

Health:

	GET /health

Voter sessions (Authorization: Bearer <session_token>, except /sessions):

	POST /sessions                      - Redeem a voter code
	GET  /session                       - Elections and voted flags
	GET  /session/elections/{id}        - Ballot form
	POST /session/elections/{id}/ballot - Cast or abstain

Administration (requires X-Admin-Key):

	POST   /admin/elections                  - Create election
	POST   /admin/elections/{id}/candidates  - Add candidate
	POST   /admin/elections/{id}/status      - Change status
	POST   /admin/elections/{id}/close       - Close and freeze results
	POST   /admin/elections/{id}/runoff      - Next round after a tie or missed threshold
	GET    /admin/elections/{id}/results     - Live results
	POST   /admin/codes                      - Issue voter codes
	DELETE /admin/codes/{code}               - Delete an unused code
	POST   /admin/groups/{group}/elections   - Open an election to a group

Results (public):

	GET /elections/{id}/results - Final snapshot (closed only)
*/
package router
