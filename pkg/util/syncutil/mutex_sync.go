// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

//go:build !deadlock

package syncutil

import (
	"sync"
	"sync/atomic"
)

// DeadlockEnabled is true if the deadlock detector is enabled.
const DeadlockEnabled = false

// A Mutex is a mutual exclusion lock that remembers whether it is held, so
// that functions documented as "requires the lock" can check it.
type Mutex struct {
	mu   sync.Mutex
	held atomic.Bool
}

// Lock locks m.
func (m *Mutex) Lock() {
	m.mu.Lock()
	m.held.Store(true)
}

// TryLock tries to lock m and reports whether it succeeded.
func (m *Mutex) TryLock() bool {
	if !m.mu.TryLock() {
		return false
	}
	m.held.Store(true)
	return true
}

// Unlock unlocks m.
func (m *Mutex) Unlock() {
	m.held.Store(false)
	m.mu.Unlock()
}

// AssertHeld panics if the mutex is not locked. Like the race-build variant
// in the main tree it does not check which goroutine holds the lock, only
// that some goroutine does.
func (m *Mutex) AssertHeld() {
	if !m.held.Load() {
		panic("mutex is not write locked")
	}
}
