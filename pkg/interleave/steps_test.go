// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package interleave

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/util/leaktest"
	"github.com/cockroachdb/interleave/pkg/util/log"
	"github.com/stretchr/testify/require"
)

func TestSteps(t *testing.T) {
	defer log.Scope(t).Close(t)
	ctx := context.Background()

	var ran []int64
	record := func(turn int64) Action {
		return func(context.Context, *Driver) error {
			ran = append(ran, turn)
			return nil
		}
	}
	s := NewSteps().At(0, record(0)).At(3, record(3)).Claim(5)
	require.Equal(t, []int64{0, 3, 5}, s.OwnedTurns())

	for _, tc := range []struct {
		turn     int64
		expected Outcome
	}{
		{0, Acted},
		{1, Waited},
		{2, Waited},
		{3, Acted},
		{3, Waited},
		{4, TerminatedOk},
	} {
		o, err := s.Step(ctx, nil, tc.turn)
		require.NoError(t, err)
		require.Equal(t, tc.expected, o, "turn %d", tc.turn)
	}
	require.Equal(t, []int64{0, 3}, ran)
}

func TestStepsUntil(t *testing.T) {
	ctx := context.Background()
	s := NewSteps().At(1, noop).Until(3)
	for _, tc := range []struct {
		turn     int64
		expected Outcome
	}{
		{0, Waited},
		{1, Acted},
		{2, Waited},
		{3, TerminatedOk},
	} {
		o, err := s.Step(ctx, nil, tc.turn)
		require.NoError(t, err)
		require.Equal(t, tc.expected, o, "turn %d", tc.turn)
	}
}

func TestStepsSkippedTurn(t *testing.T) {
	s := NewSteps().At(0, noop).At(2, noop)
	o, err := s.Step(context.Background(), nil, 3)
	require.Equal(t, TerminatedBadly, o)
	require.True(t, errors.IsAssertionFailure(err))
	require.ErrorContains(t, err, "turn 0 passed without its action running")
}

func TestStepsActionError(t *testing.T) {
	boom := errors.New("boom")
	s := NewSteps().At(0, func(context.Context, *Driver) error { return boom })
	o, err := s.Step(context.Background(), nil, 0)
	require.Equal(t, TerminatedBadly, o)
	require.ErrorIs(t, err, boom)
}

func TestDriverRunStandalone(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	c := NewTurnCounter()
	d := NewDriver("solo", c, 10*time.Millisecond)
	require.Equal(t, "solo", d.Agent())
	require.Same(t, c, d.Counter())

	var seen []int64
	err := d.Run(context.Background(), StateFunc(func(_ context.Context, _ *Driver, turn int64) (Outcome, error) {
		if turn == 3 {
			return TerminatedOk, nil
		}
		seen = append(seen, turn)
		return Acted, nil
	}))
	require.NoError(t, err)
	require.Equal(t, []int64{0, 1, 2}, seen)
	c.Lock()
	require.EqualValues(t, 3, c.Current())
	c.Unlock()
}

func TestDriverErrorImpliesBadTermination(t *testing.T) {
	defer log.Scope(t).Close(t)

	d := NewDriver("solo", NewTurnCounter(), 0)
	boom := errors.New("boom")
	err := d.Run(context.Background(), StateFunc(func(context.Context, *Driver, int64) (Outcome, error) {
		return Acted, boom
	}))
	require.ErrorIs(t, err, boom)

	err = d.Run(context.Background(), StateFunc(func(context.Context, *Driver, int64) (Outcome, error) {
		return TerminatedBadly, nil
	}))
	require.True(t, errors.IsAssertionFailure(err))
}

func TestDriverWaitHonorsCancellation(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	ctx, cancel := context.WithCancel(context.Background())
	d := NewDriver("waiter", NewTurnCounter(), 10*time.Millisecond)
	var steps int
	err := d.Run(ctx, StateFunc(func(context.Context, *Driver, int64) (Outcome, error) {
		if steps++; steps == 3 {
			cancel()
		}
		return Waited, nil
	}))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, "interrupted", FaultKind(err))
}
