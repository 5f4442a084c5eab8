// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package interleave

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/util/log"
	"github.com/cockroachdb/logtags"
)

// Driver is the dispatch loop of one agent. It is bound to the agent's
// TurnCounter and may be re-entered by nested States (see InTxn), which then
// read and advance the same counter.
type Driver struct {
	agent       string
	counter     *TurnCounter
	waitTimeout time.Duration
	// peerFailed reports whether some other agent terminated badly.
	peerFailed func() bool
	metrics    *Metrics
	knobs      *TestingKnobs
	stalled    *log.EveryN
}

// NewDriver creates a Driver for a standalone agent. Agents registered with
// a Registry receive their Driver from it.
func NewDriver(agent string, counter *TurnCounter, waitTimeout time.Duration) *Driver {
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	return &Driver{
		agent:       agent,
		counter:     counter,
		waitTimeout: waitTimeout,
		peerFailed:  func() bool { return false },
		stalled:     log.Every(time.Second),
	}
}

// Agent returns the name of the agent being driven.
func (d *Driver) Agent() string {
	return d.agent
}

// Counter returns the shared turn counter.
func (d *Driver) Counter() *TurnCounter {
	return d.counter
}

// Run drives the State until it terminates. It returns nil if the State
// terminated normally and the step's error otherwise. While waiting, Run
// returns early if the context is done or a peer agent terminated badly.
func (d *Driver) Run(ctx context.Context, s State) error {
	for {
		d.counter.Lock()
		turn := d.counter.Current()
		d.counter.Unlock()

		outcome, err := s.Step(ctx, d, turn)
		if err != nil && outcome != TerminatedBadly {
			outcome = TerminatedBadly
		}
		if d.knobs != nil && d.knobs.OnStep != nil {
			d.knobs.OnStep(d.agent, turn, outcome)
		}
		if outcome != Waited {
			log.VEventf(ctx, 2, "turn %d: %s", turn, outcome)
		}

		switch outcome {
		case Acted:
			d.counter.Lock()
			d.counter.Advance()
			d.counter.Unlock()
			if d.metrics != nil {
				d.metrics.TurnsAdvanced.Inc()
			}
		case Waited:
			if err := d.wait(ctx, turn); err != nil {
				return err
			}
		case TerminatedOk:
			return nil
		case TerminatedBadly:
			if err == nil {
				err = errors.AssertionFailedf("agent %s terminated badly at turn %d", d.agent, turn)
			}
			return err
		default:
			return errors.AssertionFailedf("unknown outcome %s", outcome)
		}
	}
}

// wait blocks until the turn moves away from the given value or the bounded
// wait elapses. It returns an error if the agent must stop waiting for good.
func (d *Driver) wait(ctx context.Context, turn int64) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "agent %s interrupted at turn %d", d.agent, turn)
	}
	if d.peerFailed() {
		return errors.Wrapf(ErrPeerTerminated, "agent %s stopped waiting at turn %d", d.agent, turn)
	}
	d.counter.Lock()
	defer d.counter.Unlock()
	if d.counter.Current() != turn {
		return nil
	}
	if !d.counter.AwaitChange(ctx, d.waitTimeout) && ctx.Err() == nil {
		if d.metrics != nil {
			d.metrics.WaitTimeouts.Inc()
		}
		if d.stalled.ShouldLog() {
			log.VEventf(logtags.AddTag(ctx, "turn", turn), 1, "still waiting after %s", d.waitTimeout)
		}
	}
	return nil
}
