// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

//go:build deadlock

package syncutil

import (
	"sync/atomic"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// DeadlockEnabled is true if the deadlock detector is enabled.
const DeadlockEnabled = true

func init() {
	// Turn waits are bounded by a few hundred milliseconds; anything stuck on
	// the monitor for this long is a real deadlock.
	deadlock.Opts.DeadlockTimeout = 5 * time.Minute
}

// A Mutex is a mutual exclusion lock backed by go-deadlock, which reports
// lock-order inversions and long waits.
type Mutex struct {
	mu   deadlock.Mutex
	held atomic.Bool
}

// Lock locks m.
func (m *Mutex) Lock() {
	m.mu.Lock()
	m.held.Store(true)
}

// TryLock is not supported by go-deadlock; it always blocks.
func (m *Mutex) TryLock() bool {
	m.Lock()
	return true
}

// Unlock unlocks m.
func (m *Mutex) Unlock() {
	m.held.Store(false)
	m.mu.Unlock()
}

// AssertHeld panics if the mutex is not locked.
func (m *Mutex) AssertHeld() {
	if !m.held.Load() {
		panic("mutex is not write locked")
	}
}
