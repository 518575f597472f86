// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballot

import (
	"fmt"

	"github.com/lifecatcher9182/vote-system-sub000/models"
)

// Choice is what a voter submits for one election: either exactly
// MaxSelections candidates or an abstention.
type Choice struct {
	CandidateIDs []string
	Abstain      bool
}

// Form holds in-progress selections for one election. Nothing in it is
// persisted; abandoning a form leaves no trace.
type Form struct {
	Election   models.Election
	Candidates []models.Candidate

	selected []string
	abstain  bool
}

func NewForm(election models.Election, candidates []models.Candidate) *Form {
	return &Form{Election: election, Candidates: candidates}
}

func (f *Form) hasCandidate(id string) bool {
	for _, c := range f.Candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Toggle selects or deselects a candidate. Selecting clears abstain.
// Selecting beyond MaxSelections is rejected and leaves the form unchanged.
func (f *Form) Toggle(candidateID string) error {
	if !f.hasCandidate(candidateID) {
		return ErrUnknownCandidate
	}

	for i, id := range f.selected {
		if id == candidateID {
			f.selected = append(f.selected[:i], f.selected[i+1:]...)
			return nil
		}
	}

	if len(f.selected) >= f.Election.MaxSelections {
		return fmt.Errorf("%w: you can select at most %d", ErrSelectionLimit, f.Election.MaxSelections)
	}
	f.selected = append(f.selected, candidateID)
	f.abstain = false
	return nil
}

// ToggleAbstain switches abstention on or off. Turning it on clears every
// candidate selection.
func (f *Form) ToggleAbstain() {
	f.abstain = !f.abstain
	if f.abstain {
		f.selected = nil
	}
}

func (f *Form) Selected() []string {
	return append([]string(nil), f.selected...)
}

func (f *Form) Abstaining() bool {
	return f.abstain
}

// Choice returns the submittable choice, or a SelectionCountError when the
// form is neither abstaining nor complete.
func (f *Form) Choice() (Choice, error) {
	if f.abstain {
		return Choice{Abstain: true}, nil
	}
	if len(f.selected) != f.Election.MaxSelections {
		return Choice{}, &SelectionCountError{Required: f.Election.MaxSelections, Selected: len(f.selected)}
	}
	return Choice{CandidateIDs: f.Selected()}, nil
}

// validate checks a choice against the election before anything is
// written and returns the distinct candidate ids.
func validate(election models.Election, candidates []models.Candidate, choice Choice) ([]string, error) {
	if choice.Abstain {
		if len(choice.CandidateIDs) > 0 {
			return nil, fmt.Errorf("%w: abstain cannot be combined with candidate selections", ErrSelectionCountMismatch)
		}
		return nil, nil
	}

	seen := make(map[string]bool, len(choice.CandidateIDs))
	ids := make([]string, 0, len(choice.CandidateIDs))
	for _, id := range choice.CandidateIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) != election.MaxSelections {
		return nil, &SelectionCountError{Required: election.MaxSelections, Selected: len(ids)}
	}

	form := Form{Candidates: candidates}
	for _, id := range ids {
		if !form.hasCandidate(id) {
			return nil, ErrUnknownCandidate
		}
	}
	return ids, nil
}
