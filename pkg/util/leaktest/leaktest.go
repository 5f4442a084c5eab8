// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package leaktest provides tools to detect leaked goroutines in tests.
// To use it, call "defer leaktest.AfterTest(t)()" at the beginning of each
// test that may use goroutines.
package leaktest

import (
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/interleave/pkg/util/timeutil"
	"github.com/petermattis/goid"
)

// interestingGoroutines returns all goroutines we care about for the purpose
// of leak checking, keyed by goroutine id. It excludes testing or runtime
// ones, and long-lived goroutines started by libraries we depend on.
func interestingGoroutines() map[int64]string {
	buf := make([]byte, 2<<20)
	buf = buf[:runtime.Stack(buf, true)]
	gs := make(map[int64]string)
	for _, g := range strings.Split(string(buf), "\n\n") {
		sl := strings.SplitN(g, "\n", 2)
		if len(sl) != 2 {
			continue
		}
		stack := strings.TrimSpace(sl[1])
		if stack == "" ||
			strings.Contains(stack, "testing.(*T).Run") ||
			strings.Contains(stack, "testing.Main(") ||
			strings.Contains(stack, "testing.tRunner(") ||
			strings.Contains(stack, "interestingGoroutines") ||
			strings.Contains(stack, "runtime.MHeap_Scavenger") ||
			strings.Contains(stack, "signal.signal_recv") ||
			strings.Contains(stack, "sigterm.handler") ||
			strings.Contains(stack, "runtime_mcall") ||
			strings.Contains(stack, "goroutine in C code") ||
			strings.Contains(stack, "runtime.CPUProfile") ||
			// Started lazily by the sql package for connection reuse.
			strings.Contains(stack, "database/sql.(*DB).connectionOpener") ||
			// Process-wide workers in badger's dependencies.
			strings.Contains(stack, "go.opencensus.io/stats/view.(*worker).start") ||
			strings.Contains(stack, "github.com/dgraph-io/ristretto") {
			continue
		}
		gs[goroutineID(sl[0])] = g
	}
	return gs
}

// goroutineID parses the "goroutine 123 [running]:" header line.
func goroutineID(header string) int64 {
	fields := strings.Fields(header)
	if len(fields) < 2 {
		return 0
	}
	var id int64
	for _, c := range fields[1] {
		if c < '0' || c > '9' {
			return 0
		}
		id = id*10 + int64(c-'0')
	}
	return id
}

// tShim is the subset of testing.TB used by AfterTest.
type tShim interface {
	Errorf(format string, args ...interface{})
	Failed() bool
	Logf(format string, args ...interface{})
}

// AfterTest snapshots the currently-running goroutines and returns a
// function to be run at the end of tests to see whether any goroutines
// leaked.
func AfterTest(t tShim) func() {
	orig := interestingGoroutines()
	self := goid.Get()
	return func() {
		if t.Failed() {
			return
		}
		// Loop, waiting for goroutines to shut down. Wait up to 5 seconds,
		// but finish as quickly as possible.
		deadline := timeutil.Now().Add(5 * time.Second)
		for {
			var leaked []string
			for id, stack := range interestingGoroutines() {
				if _, ok := orig[id]; !ok && id != self {
					leaked = append(leaked, stack)
				}
			}
			if len(leaked) == 0 {
				return
			}
			if timeutil.Now().Before(deadline) {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			sort.Strings(leaked)
			for _, g := range leaked {
				t.Errorf("Leaked goroutine: %v", g)
			}
			return
		}
	}
}
