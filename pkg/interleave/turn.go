// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package interleave

import (
	"context"
	"time"

	"github.com/cockroachdb/interleave/pkg/util/syncutil"
	"github.com/cockroachdb/interleave/pkg/util/timeutil"
)

// TurnCounter is the shared integer deciding whose turn it is. It is a
// monitor: Current, Advance and AwaitChange must be called with the monitor
// held (see Lock and Unlock).
type TurnCounter struct {
	onAdvance func(from int64)

	mu struct {
		syncutil.Mutex
		value int64
		// changed is closed, and replaced, every time waiters must be woken.
		changed chan struct{}
	}
}

// NewTurnCounter creates a counter starting at turn 0.
func NewTurnCounter() *TurnCounter {
	t := &TurnCounter{}
	t.mu.changed = make(chan struct{})
	return t
}

// Lock acquires the monitor.
func (t *TurnCounter) Lock() {
	t.mu.Lock()
}

// Unlock releases the monitor.
func (t *TurnCounter) Unlock() {
	t.mu.Unlock()
}

// Current returns the current turn.
func (t *TurnCounter) Current() int64 {
	t.mu.AssertHeld()
	return t.mu.value
}

// Advance increments the turn by exactly one and wakes all waiters.
func (t *TurnCounter) Advance() {
	t.mu.AssertHeld()
	from := t.mu.value
	t.mu.value++
	t.wakeLocked()
	if t.onAdvance != nil {
		t.onAdvance(from)
	}
}

// Broadcast wakes all waiters without changing the turn, so that they
// re-check their exit conditions. Unlike the other methods, it acquires the
// monitor itself.
func (t *TurnCounter) Broadcast() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.wakeLocked()
}

func (t *TurnCounter) wakeLocked() {
	close(t.mu.changed)
	t.mu.changed = make(chan struct{})
}

// AwaitChange releases the monitor and blocks until the waiters are woken,
// the timeout elapses or the context is done. The monitor is re-acquired
// before returning. It returns true if the waiter was woken, and false on
// timeout or cancellation.
func (t *TurnCounter) AwaitChange(ctx context.Context, timeout time.Duration) bool {
	t.mu.AssertHeld()
	changed := t.mu.changed
	t.mu.Unlock()
	defer t.mu.Lock()

	var timer timeutil.Timer
	defer timer.Stop()
	timer.Reset(timeout)
	select {
	case <-changed:
		return true
	case <-timer.C:
		timer.Read = true
		return false
	case <-ctx.Done():
		return false
	}
}
