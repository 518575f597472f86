// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballot

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCode            = errors.New("invalid voter code")
	ErrNoActiveElections      = errors.New("no active elections for this code")
	ErrAlreadyVoted           = errors.New("already voted in this election")
	ErrNotAccessible          = errors.New("election is not open to this code")
	ErrSelectionCountMismatch = errors.New("wrong number of selections")
	ErrSelectionLimit         = errors.New("selection limit reached")
	ErrUnknownCandidate       = errors.New("candidate is not on this ballot")
	ErrDuplicateVote          = errors.New("ballot already cast for this election")
	ErrStoreFailure           = errors.New("ballot could not be recorded, please try again")
)

// SelectionCountError reports a submission that neither abstains nor picks
// exactly the required number of candidates.
type SelectionCountError struct {
	Required int
	Selected int
}

func (e *SelectionCountError) Error() string {
	noun := "candidates"
	if e.Required == 1 {
		noun = "candidate"
	}
	return fmt.Sprintf("select exactly %d %s, you selected %d", e.Required, noun, e.Selected)
}

func (e *SelectionCountError) Is(target error) bool {
	return target == ErrSelectionCountMismatch
}

// storeFailure marks err as a store failure while keeping the cause
// reachable for logging.
func storeFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreFailure, err)
}

// isBallotError reports whether err already carries one of this package's
// sentinels.
func isBallotError(err error) bool {
	for _, target := range []error{
		ErrInvalidCode, ErrNoActiveElections, ErrAlreadyVoted, ErrNotAccessible,
		ErrSelectionCountMismatch, ErrSelectionLimit, ErrUnknownCandidate,
		ErrDuplicateVote, ErrStoreFailure,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
