// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the election API server.

Voters redeem a one-time code, cast one ballot (or abstain) in each
election the code can access, and administrators close elections to freeze
winners under plurality, absolute majority or percentage criteria.

# Starting the Server

	DATABASE_URL=votes.db ADMIN_KEY=... SESSION_SECRET=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..."

A .env file in the working directory is loaded first when present.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - ADMIN_KEY (--admin-key): Key for the admin routes
  - SESSION_SECRET (--session-secret): Signing secret for voter sessions

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - SESSION_TTL (--session-ttl): Voter session lifetime (default: 30m)
  - REDIS_ADDR (--redis): Live results cache; disabled when empty
  - RESULTS_CACHE_TTL (--cache-ttl): Cache lifetime (default: 10s)
  - MONITOR_REFRESH (--monitor-refresh): Polling hint for monitors (default: 30s)
  - AMQP_URL (--amqp): RabbitMQ URL for domain events; disabled when empty

# Architecture

  - handlers: HTTP request handlers (voting, elections, codes, results)
  - ballot: Voter sessions, ballot forms and atomic submission
  - results: Aggregation, winner resolution and the live results cache
  - store: Code store, election store and ballot ledger
  - events: Domain events over AMQP
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, guards, JSON helpers
  - models: Domain, request and response types
  - auth: Code generation, admin key checks and session tokens
  - db: Connection and schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
