// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package timeutil

import (
	"sync"
	"time"
)

var timeTimerPool sync.Pool

// The Timer type represents a single event. When the Timer expires, the
// current time will be sent on Timer.C.
//
// Timer draws stopped timers from a pool, so the bounded waits in the turn
// scheduler do not allocate one timer per wait. Unlike time.Timer, the zero
// value does not count down until Reset is called.
type Timer struct {
	timer *time.Timer
	// C is a local "copy" of timer.C that can be used in a select case before
	// the timer has been initialized (via Reset).
	C <-chan time.Time
	// Read must be set by the caller after receiving from C, so that Reset
	// does not try to drain an already-drained channel.
	Read bool
}

// Reset changes the timer to expire after duration d.
func (t *Timer) Reset(d time.Duration) {
	if t.timer == nil {
		switch timer := timeTimerPool.Get(); timer {
		case nil:
			t.timer = time.NewTimer(d)
		default:
			t.timer = timer.(*time.Timer)
			t.timer.Reset(d)
		}
		t.C = t.timer.C
		t.Read = false
		return
	}
	if !t.timer.Stop() && !t.Read {
		select {
		case <-t.C:
		default:
		}
	}
	t.timer.Reset(d)
	t.Read = false
}

// Stop prevents the Timer from firing and returns it to the pool. It reports
// whether the call stopped a pending timer.
func (t *Timer) Stop() bool {
	var res bool
	if t.timer != nil {
		res = t.timer.Stop()
		if !res && !t.Read {
			select {
			case <-t.C:
			default:
			}
		}
		timeTimerPool.Put(t.timer)
	}
	*t = Timer{}
	return res
}
