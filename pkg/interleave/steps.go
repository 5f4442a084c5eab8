// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package interleave

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
)

// Action is the work an agent performs at a turn it owns. A nil return
// means the agent acted and the turn advances; an error terminates the
// agent's State badly.
type Action func(ctx context.Context, d *Driver) error

// Steps is a table-driven State: it maps turns to actions and waits through
// every other turn. Turns need not be contiguous.
//
// Without an Until bound, Steps terminates normally as soon as the turn has
// moved past its last action. If the turn moves past an action that never
// ran, the mapping is broken and Steps terminates badly.
type Steps struct {
	actions  map[int64]Action
	claimed  map[int64]struct{}
	executed map[int64]struct{}
	last     int64
	until    int64
}

var _ State = (*Steps)(nil)
var _ Owner = (*Steps)(nil)

// NewSteps returns an empty Steps.
func NewSteps() *Steps {
	return &Steps{
		actions:  make(map[int64]Action),
		claimed:  make(map[int64]struct{}),
		executed: make(map[int64]struct{}),
		last:     -1,
		until:    -1,
	}
}

// At registers the action to perform at the given turn. Registering a turn
// twice replaces the earlier action.
func (s *Steps) At(turn int64, action Action) *Steps {
	if turn < 0 {
		panic(errors.AssertionFailedf("negative turn %d", turn))
	}
	s.actions[turn] = action
	if turn > s.last {
		s.last = turn
	}
	return s
}

// Until makes the State terminate normally once the turn reaches the given
// value. A transaction body uses it to hand control back to the enclosing
// State, which commits the transaction at that turn.
func (s *Steps) Until(turn int64) *Steps {
	s.until = turn
	return s
}

// Claim declares turns that this agent owns without a directly registered
// action, typically the turns consumed by a nested transaction body and its
// commit.
func (s *Steps) Claim(turns ...int64) *Steps {
	for _, t := range turns {
		s.claimed[t] = struct{}{}
	}
	return s
}

// OwnedTurns implements the Owner interface. It returns the sorted union of
// the action turns and the claimed turns.
func (s *Steps) OwnedTurns() []int64 {
	set := make(map[int64]struct{}, len(s.actions)+len(s.claimed))
	for t := range s.actions {
		set[t] = struct{}{}
	}
	for t := range s.claimed {
		set[t] = struct{}{}
	}
	return sortedTurns(set)
}

func sortedTurns[V any](m map[int64]V) []int64 {
	turns := make([]int64, 0, len(m))
	for t := range m {
		turns = append(turns, t)
	}
	sort.Slice(turns, func(i, j int) bool { return turns[i] < turns[j] })
	return turns
}

// Step implements the State interface.
func (s *Steps) Step(ctx context.Context, d *Driver, turn int64) (Outcome, error) {
	if s.until >= 0 && turn >= s.until {
		return TerminatedOk, nil
	}
	if action, ok := s.actions[turn]; ok {
		if _, done := s.executed[turn]; !done {
			s.executed[turn] = struct{}{}
			if err := action(ctx, d); err != nil {
				return TerminatedBadly, err
			}
			return Acted, nil
		}
	}
	if s.until < 0 && turn > s.last {
		for _, t := range sortedTurns(s.actions) {
			if _, done := s.executed[t]; !done {
				return TerminatedBadly, errors.AssertionFailedf(
					"turn %d passed without its action running (now at turn %d)", t, turn)
			}
		}
		return TerminatedOk, nil
	}
	return Waited, nil
}
