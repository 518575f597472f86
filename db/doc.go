// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Connecting

Open picks the driver from the configured database type:

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

"postgres" uses lib/pq; anything else uses the embedded modernc SQLite
driver, limited to one open connection.

# Schema Creation

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - election: status, max selections, winning criteria, group, round
  - candidate: per-election candidates with vote_count
  - voter_code: single-use codes with login and used timestamps
  - voter_code_election: the accessible elections of each code
  - ballot_event: one cast-or-abstain event per (election, code)
  - ballot: one row per selected candidate, or one abstain row
  - result_snapshot: results frozen when an election closes

# Relationships

	election 1──* candidate
	voter_code *──* election (via voter_code_election)
	election 1──* ballot_event 1──* ballot
	election 1──* result_snapshot

The UNIQUE (election_id, voter_code_id) constraint on ballot_event is the
authoritative duplicate-vote guard.
*/
package db
