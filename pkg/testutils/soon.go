// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package testutils

import (
	"time"

	"github.com/cockroachdb/interleave/pkg/util"
	"github.com/cockroachdb/interleave/pkg/util/retry"
)

// DefaultSucceedsSoonDuration is the maximum amount of time unittests
// will wait for a condition to become true. See SucceedsSoon().
const DefaultSucceedsSoonDuration = 45 * time.Second

// RaceSucceedsSoonDuration is the maximum amount of time
// unittests will wait for a condition to become true when
// running with the race detector enabled.
const RaceSucceedsSoonDuration = DefaultSucceedsSoonDuration * 5

// SucceedsSoon fails the test (with t.Fatal) unless the supplied function runs
// without error within a preset maximum duration. The function is invoked
// immediately at first and then successively with an exponential backoff
// starting at 1ns and ending at DefaultSucceedsSoonDuration (or
// RaceSucceedsSoonDuration if race is enabled).
func SucceedsSoon(t TestFatalerLogger, fn func() error) {
	t.Helper()
	SucceedsWithin(t, fn, SucceedsSoonDuration())
}

// SucceedsWithin fails the test (with t.Fatal) unless the supplied
// function runs without error within the given duration.
func SucceedsWithin(t TestFatalerLogger, fn func() error, duration time.Duration) {
	t.Helper()
	if err := SucceedsWithinError(fn, duration); err != nil {
		t.Fatalf("condition failed to evaluate: %+v", err)
	}
}

// SucceedsWithinError returns an error unless the supplied function runs
// without error within the given duration.
func SucceedsWithinError(fn func() error, duration time.Duration) error {
	return retry.ForDuration(duration, fn)
}

// SucceedsSoonDuration returns the maximum amount of time unittests will
// wait for a condition to become true.
func SucceedsSoonDuration() time.Duration {
	if util.RaceEnabled {
		return RaceSucceedsSoonDuration
	}
	return DefaultSucceedsSoonDuration
}
