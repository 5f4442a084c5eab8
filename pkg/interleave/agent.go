// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package interleave

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/util/log"
	"github.com/cockroachdb/logtags"
)

// Status is the termination status of an agent.
type Status int32

const (
	// StatusPending is the status of an agent that has not been started.
	StatusPending Status = iota
	// StatusRunning is the status of a started agent that has not finished.
	StatusRunning
	// StatusTerminatedOk is the status of an agent whose State terminated
	// normally.
	StatusTerminatedOk
	// StatusTerminatedBadly is the status of an agent that failed, panicked,
	// gave up waiting on a failed peer, or was interrupted unexpectedly.
	StatusTerminatedBadly
	// StatusInterrupted is the status of an agent that was canceled during an
	// intentional wind-down (see Registry.Stop).
	StatusInterrupted
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusTerminatedOk:
		return "terminated-ok"
	case StatusTerminatedBadly:
		return "terminated-badly"
	case StatusInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// Agent is one concurrently running worker: an identity, the goroutine
// driving its State, and the bookkeeping of how it ended.
//
// The status and error are written only by the agent's own goroutine (or by
// the agent's own code through MarkTerminatedBadly) and are published with
// atomics, so that the registry and the test can read them at any time.
type Agent struct {
	name  string
	state State

	// Set by the registry before the agent starts.
	driver      *Driver
	windingDown func() bool
	onExit      func(*Agent)

	started atomic.Bool
	exited  atomic.Bool
	status  atomic.Int32
	err     atomic.Pointer[error]
	done    chan struct{}
}

// NewAgent creates an agent. The name must be unique within a scenario.
func NewAgent(name string, state State) *Agent {
	return &Agent{
		name:  name,
		state: state,
		done:  make(chan struct{}),
	}
}

// Name returns the agent's name.
func (a *Agent) Name() string {
	return a.name
}

// State returns the agent's state machine.
func (a *Agent) State() State {
	return a.state
}

// Start launches the goroutine driving the agent's State. The agent must
// have been registered, and can only be started once.
func (a *Agent) Start(ctx context.Context) error {
	if a.driver == nil {
		return errors.AssertionFailedf("agent %s is not registered", a.name)
	}
	if !a.started.CompareAndSwap(false, true) {
		return errors.Newf("agent %s already started", a.name)
	}
	a.status.Store(int32(StatusRunning))
	ctx = logtags.AddTag(ctx, "agent", a.name)
	go a.run(ctx)
	return nil
}

func (a *Agent) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = errors.Newf("%v", r)
			}
			a.MarkTerminatedBadly(errors.Wrap(err, "agent panicked"))
		}
		a.exited.Store(true)
		log.VEventf(ctx, 1, "exited: %s", a.Status())
		if a.onExit != nil {
			a.onExit(a)
		}
		close(a.done)
	}()

	log.VEventf(ctx, 1, "starting")
	err := a.driver.Run(ctx, a.state)
	switch {
	case err == nil:
		a.markTerminatedNormally()
	case a.windingDown != nil && a.windingDown() &&
		(errors.Is(err, context.Canceled) || errors.Is(err, ErrPeerTerminated)):
		a.setOutcome(StatusInterrupted, err)
	default:
		log.Warningf(ctx, "terminated badly: %v", err)
		a.MarkTerminatedBadly(err)
	}
}

// setOutcome records the final status and error unless one was already
// recorded.
func (a *Agent) setOutcome(s Status, err error) bool {
	if a.Status() != StatusRunning {
		return false
	}
	if err != nil {
		// Published before the status so that a reader observing the final
		// status also observes the error.
		a.err.CompareAndSwap(nil, &err)
	}
	return a.status.CompareAndSwap(int32(StatusRunning), int32(s))
}

func (a *Agent) markTerminatedNormally() {
	a.setOutcome(StatusTerminatedOk, nil)
}

// MarkTerminatedBadly records that the agent failed with the given error.
// It is idempotent: only the first recorded outcome sticks.
func (a *Agent) MarkTerminatedBadly(err error) {
	if err == nil {
		err = errors.Newf("agent %s terminated badly", a.name)
	}
	a.setOutcome(StatusTerminatedBadly, err)
}

// IsAlive returns whether the agent's goroutine is running.
func (a *Agent) IsAlive() bool {
	return a.started.Load() && !a.exited.Load()
}

// HasTerminatedNormally returns whether the agent's State terminated
// normally.
func (a *Agent) HasTerminatedNormally() bool {
	return a.Status() == StatusTerminatedOk
}

// Status returns the agent's current status.
func (a *Agent) Status() Status {
	return Status(a.status.Load())
}

// Err returns the error the agent terminated with, if any.
func (a *Agent) Err() error {
	if p := a.err.Load(); p != nil {
		return *p
	}
	return nil
}

// Done returns a channel that is closed once the agent's goroutine exits,
// after its outcome has been recorded.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}
