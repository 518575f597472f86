// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ballot drives a voter code through its elections.

# Flow

	Redeem(code) -> Session
	SelectElection(session, id) -> Form
	Form.Toggle / Form.ToggleAbstain -> Form.Choice()
	Submit(session, id, choice) -> Receipt

Per election a voter moves NotStarted -> Selecting -> Submitted, with no way
back from Submitted. A code becomes used once every active election it can
access has a ballot event.

# Invariants

  - At most one ballot event per (election, code), enforced by a unique key.
  - A candidate's tally equals its ballot rows; both are written in the
    same transaction.
  - The voted set is read from the ballot ledger on every request.
*/
package ballot
