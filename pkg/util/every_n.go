// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package util

import (
	"time"

	"github.com/cockroachdb/interleave/pkg/util/syncutil"
)

// EveryN provides a way to rate limit spammy events, such as an agent
// reporting that it is still waiting for its turn. It tracks how recently a
// given event has occurred so that it can determine whether it's worth
// handling again.
//
// The zero value for EveryN is usable and is equivalent to Every(0), meaning
// that all calls to ShouldProcess will return true.
type EveryN struct {
	// N is the minimum duration of time between events.
	N time.Duration

	mu struct {
		syncutil.Mutex
		lastProcessed time.Time
	}
}

// Every is a convenience constructor for an EveryN object that allows an
// event every n duration.
func Every(n time.Duration) *EveryN {
	return &EveryN{N: n}
}

// ShouldProcess returns whether it's been more than N time since the last
// event.
func (e *EveryN) ShouldProcess(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mu.lastProcessed.IsZero() || now.Sub(e.mu.lastProcessed) >= e.N {
		e.mu.lastProcessed = now
		return true
	}
	return false
}
