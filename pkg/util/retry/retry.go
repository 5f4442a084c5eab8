// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package retry

import (
	"context"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/util/timeutil"
)

// Options provides reusable configuration of Retry objects.
type Options struct {
	InitialBackoff time.Duration // Default retry backoff interval
	MaxBackoff     time.Duration // Maximum retry backoff interval
	Multiplier     float64       // Default backoff constant
	MaxRetries     int           // Maximum number of attempts (0 for infinite)
}

// Retry implements the public methods necessary to control an exponential-
// backoff retry loop.
type Retry struct {
	opts           Options
	ctx            context.Context
	currentAttempt int
	isReset        bool
}

// StartWithCtx returns a new Retry initialized to some default values. The
// Retry can then be used in an exponential-backoff retry loop. If the
// provided context is canceled, the retry loop ends early.
func StartWithCtx(ctx context.Context, opts Options) Retry {
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = 50 * time.Millisecond
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = 2 * time.Second
	}
	if opts.Multiplier == 0 {
		opts.Multiplier = 2
	}
	r := Retry{opts: opts, ctx: ctx}
	r.Reset()
	return r
}

// Reset resets the Retry to its initial state, meaning that the next call to
// Next will return true immediately and subsequent calls will behave as if
// they had followed the very first attempt.
func (r *Retry) Reset() {
	r.currentAttempt = 0
	r.isReset = true
}

// CurrentAttempt returns the number of attempts made so far.
func (r Retry) CurrentAttempt() int {
	return r.currentAttempt
}

func (r Retry) retryIn() time.Duration {
	backoff := float64(r.opts.InitialBackoff) * math.Pow(r.opts.Multiplier, float64(r.currentAttempt))
	if maxBackoff := float64(r.opts.MaxBackoff); backoff > maxBackoff {
		return time.Duration(maxBackoff)
	}
	return time.Duration(backoff)
}

// Next returns whether the retry loop should continue, and blocks for the
// appropriate length of time before yielding back to the caller. If the
// context is canceled, Next returns false.
func (r *Retry) Next() bool {
	if r.isReset {
		r.isReset = false
		return true
	}
	if r.opts.MaxRetries > 0 && r.currentAttempt >= r.opts.MaxRetries {
		return false
	}

	var t timeutil.Timer
	defer t.Stop()
	t.Reset(r.retryIn())
	select {
	case <-t.C:
		t.Read = true
		r.currentAttempt++
		return true
	case <-r.ctx.Done():
		return false
	}
}

// ForDuration will retry the given function until it either returns
// without error, or the given duration has elapsed. The function is invoked
// immediately at first and then successively with an exponential backoff
// starting at 1ns and ending at the specified duration.
func ForDuration(duration time.Duration, fn func() error) error {
	deadline := timeutil.Now().Add(duration)
	var lastErr error
	for wait := time.Duration(1); timeutil.Now().Before(deadline); wait *= 2 {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if wait > time.Second {
			wait = time.Second
		}
		time.Sleep(wait)
	}
	return errors.Wrapf(lastErr, "condition failed to evaluate within %s", duration)
}
