// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package results aggregates election participation and tallies and resolves
winners under each election's winning criteria.

ResolveWinners is a pure function over candidate tallies:

  - Candidates with no votes never win.
  - The leading tally must meet the criteria (absolute majority of attended
    codes, or a percentage of attended or issued codes) before anyone is
    elected.
  - A tie at the last seat is reported with confirmed winners, tied
    candidates and the number of seats left to resolve. It is never broken
    automatically.

Compute reads the store and builds ElectionResults, including a
consistency check of stored tallies against the ballot ledger and a hash of
the ballot rows used. Monitor adds a Redis-backed cache for live results.
*/
package results
