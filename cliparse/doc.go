// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-p                 Server port (default: 3318)
	-d                 Database URL
	-t                 Database type: sqlite or postgres (default: sqlite)
	--admin-key        Admin key
	--session-secret   Voter session signing secret
	--session-ttl      Voter session lifetime (default: 30m)
	--redis            Redis address for the live results cache
	--cache-ttl        Live results cache lifetime (default: 10s)
	--monitor-refresh  Suggested monitor polling interval (default: 30s)
	--amqp             AMQP URL for domain events

# Environment Variables

Flags fall back to environment variables:

	PORT              → -p
	DATABASE_URL      → -d
	DATABASE_TYPE     → -t
	ADMIN_KEY         → --admin-key
	SESSION_SECRET    → --session-secret
	SESSION_TTL       → --session-ttl
	REDIS_ADDR        → --redis
	RESULTS_CACHE_TTL → --cache-ttl
	MONITOR_REFRESH   → --monitor-refresh
	AMQP_URL          → --amqp

CLI flags take precedence over environment variables. Redis and AMQP are
optional; without them the results cache and event publishing are disabled.
*/
package cliparse
