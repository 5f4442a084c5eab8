// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package interleave

import (
	"context"
	"fmt"
)

// Outcome is the result of a single State.Step.
type Outcome int

const (
	// Waited means the turn belongs to another agent.
	Waited Outcome = iota
	// Acted means the agent performed the action it owns for the turn; the
	// Driver advances the counter.
	Acted
	// TerminatedOk means the agent has finished its protocol.
	TerminatedOk
	// TerminatedBadly means the step failed. It is accompanied by an error.
	TerminatedBadly
)

func (o Outcome) String() string {
	switch o {
	case Waited:
		return "waited"
	case Acted:
		return "acted"
	case TerminatedOk:
		return "terminated-ok"
	case TerminatedBadly:
		return "terminated-badly"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// State is an agent's state machine: a mapping from the current turn to the
// agent's next move. Turns the State does not own must yield Waited.
//
// Step is called without the counter's monitor held. An action performed by
// Step may block on storage, and may drive a nested State through the given
// Driver (see InTxn); since only the owner of the current turn can advance
// the counter, the turn cannot move while the owner acts.
type State interface {
	Step(ctx context.Context, d *Driver, turn int64) (Outcome, error)
}

// StateFunc adapts a function to the State interface.
type StateFunc func(ctx context.Context, d *Driver, turn int64) (Outcome, error)

var _ State = StateFunc(nil)

// Step implements the State interface.
func (f StateFunc) Step(ctx context.Context, d *Driver, turn int64) (Outcome, error) {
	return f(ctx, d, turn)
}

// Owner is implemented by States that can declare, ahead of time, the turns
// they act at. It is used to validate the ownership of a scenario's turns.
type Owner interface {
	OwnedTurns() []int64
}
