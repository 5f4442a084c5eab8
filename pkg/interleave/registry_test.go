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
	"github.com/cockroachdb/interleave/pkg/util/syncutil"
	"github.com/cockroachdb/interleave/pkg/util/timeutil"
	"github.com/stretchr/testify/require"
)

func TestMonotonicTurnOrder(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	// OnAdvance runs with the monitor held, so the calls are serialized.
	var advances []int64
	r := NewRegistry(Config{
		ValidateOwnership: true,
		Knobs: &TestingKnobs{
			OnAdvance: func(from int64) { advances = append(advances, from) },
		},
	})
	require.NoError(t, r.Register(
		NewAgent("alfa", NewSteps().At(0, noop).At(2, noop).At(4, noop)),
		NewAgent("bravo", NewSteps().At(1, noop).At(3, noop).At(5, noop)),
		NewAgent("charlie", NewSteps().At(6, noop)),
	))
	require.NoError(t, r.Run(context.Background()))
	require.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6}, advances)
	for _, a := range r.Agents() {
		require.True(t, a.HasTerminatedNormally(), "agent %s: %s", a.Name(), a.Status())
		require.False(t, a.IsAlive())
	}
	require.False(t, r.AnyTerminatedBadly())
}

func TestExclusiveTurnOwnership(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	owners := map[int64]string{0: "alfa", 1: "bravo", 2: "bravo", 3: "alfa", 4: "charlie"}
	steps := map[string]*Steps{"alfa": NewSteps(), "bravo": NewSteps(), "charlie": NewSteps()}
	for turn, name := range owners {
		steps[name].At(turn, noop)
	}

	var mu syncutil.Mutex
	acted := make(map[int64][]string)
	r := NewRegistry(Config{
		ValidateOwnership: true,
		Knobs: &TestingKnobs{
			OnStep: func(agent string, turn int64, o Outcome) {
				mu.Lock()
				defer mu.Unlock()
				switch o {
				case Acted:
					acted[turn] = append(acted[turn], agent)
				case TerminatedBadly:
					t.Errorf("agent %s terminated badly at turn %d", agent, turn)
				}
			},
		},
	})
	require.NoError(t, r.Register(
		NewAgent("alfa", steps["alfa"]),
		NewAgent("bravo", steps["bravo"]),
		NewAgent("charlie", steps["charlie"]),
	))
	require.NoError(t, r.Run(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, acted, len(owners))
	for turn, name := range owners {
		require.Equal(t, []string{name}, acted[turn], "turn %d", turn)
	}
}

func TestTwoPhaseInterleave(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	// The value is handed over through the turn counter's monitor, which
	// orders the writes before the reads.
	var value string
	var reads []string
	write := func(v string) Action {
		return func(context.Context, *Driver) error {
			value = v
			return nil
		}
	}
	read := func(context.Context, *Driver) error {
		reads = append(reads, value)
		return nil
	}
	for i := 0; i < 20; i++ {
		value, reads = "", nil
		r := NewRegistry(Config{ValidateOwnership: true})
		require.NoError(t, r.Register(
			NewAgent("alfa", NewSteps().At(0, write("X")).At(2, write("Y"))),
			NewAgent("bravo", NewSteps().At(1, read).At(3, read)),
		))
		require.NoError(t, r.Run(context.Background()))
		require.Equal(t, []string{"X", "Y"}, reads)
	}
}

func TestFailFastPropagation(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	const waitTimeout = 100 * time.Millisecond
	var failedAt time.Time
	injected := errors.New("injected fault")
	r := NewRegistry(Config{WaitTimeout: waitTimeout})
	require.NoError(t, r.Register(
		NewAgent("alfa", NewSteps().At(0, noop).At(2, func(context.Context, *Driver) error {
			failedAt = timeutil.Now()
			return injected
		})),
		// alfa fails at turn 2, so bravo never reaches turn 3.
		NewAgent("bravo", NewSteps().At(1, noop).At(3, noop)),
	))
	require.NoError(t, r.StartAll(context.Background()))
	require.NoError(t, r.JoinAll(context.Background()))

	alfa, _ := r.Get("alfa")
	bravo, _ := r.Get("bravo")
	require.Equal(t, StatusTerminatedBadly, alfa.Status())
	require.ErrorIs(t, alfa.Err(), injected)
	require.Equal(t, StatusTerminatedBadly, bravo.Status())
	require.ErrorIs(t, bravo.Err(), ErrPeerTerminated)
	require.Equal(t, "peer terminated", FaultKind(bravo.Err()))
	require.True(t, r.AnyTerminatedBadly())

	// failedAt is published to this goroutine by alfa's exit.
	<-bravo.Done()
	require.LessOrEqual(t, timeutil.Since(failedAt), 2*waitTimeout)

	err := r.Err()
	require.ErrorIs(t, err, injected)
	require.ErrorContains(t, err, "agent alfa")
}

func TestJoinDeterminism(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	slow := func(context.Context, *Driver) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}
	long := NewSteps()
	for turn := int64(1); turn < 10; turn++ {
		long.At(turn, slow)
	}
	r := NewRegistry(Config{ValidateOwnership: true})
	// The first registered agent finishes long before the second one.
	require.NoError(t, r.Register(
		NewAgent("short", NewSteps().At(0, noop)),
		NewAgent("long", long),
	))
	require.NoError(t, r.Run(context.Background()))
	for _, a := range r.Agents() {
		require.False(t, a.IsAlive())
		require.True(t, a.HasTerminatedNormally())
	}
}

func TestJoinAllHonorsContext(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	r := NewRegistry(Config{WaitTimeout: 10 * time.Millisecond})
	// Turn 0 has no owner: the agent stalls.
	require.NoError(t, r.Register(NewAgent("stalled", NewSteps().At(1, noop))))
	require.NoError(t, r.StartAll(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, r.JoinAll(ctx), context.DeadlineExceeded)

	r.Stop()
	require.NoError(t, r.JoinAll(context.Background()))
}

func TestStopClassifiesInterrupted(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	r := NewRegistry(Config{WaitTimeout: 10 * time.Millisecond})
	require.NoError(t, r.Register(
		NewAgent("alfa", NewSteps().At(1, noop)),
		NewAgent("bravo", NewSteps().At(2, noop)),
	))
	require.NoError(t, r.StartAll(context.Background()))
	r.Stop()
	require.NoError(t, r.JoinAll(context.Background()))
	for _, a := range r.Agents() {
		require.Equal(t, StatusInterrupted, a.Status(), "agent %s", a.Name())
		require.ErrorIs(t, a.Err(), context.Canceled)
	}
	require.False(t, r.AnyTerminatedBadly())
	require.NoError(t, r.Err())
}

func TestUnexpectedInterruptionIsBad(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	ctx, cancel := context.WithCancel(context.Background())
	r := NewRegistry(Config{WaitTimeout: 10 * time.Millisecond})
	require.NoError(t, r.Register(NewAgent("alfa", NewSteps().At(1, noop))))
	require.NoError(t, r.StartAll(ctx))
	cancel()
	require.NoError(t, r.JoinAll(context.Background()))
	alfa, ok := r.Get("alfa")
	require.True(t, ok)
	require.Equal(t, StatusTerminatedBadly, alfa.Status())
	require.True(t, r.AnyTerminatedBadly())
}

func TestAgentPanicIsCaptured(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	r := NewRegistry(Config{})
	require.NoError(t, r.Register(NewAgent("alfa", NewSteps().At(0, func(context.Context, *Driver) error {
		panic("kaboom")
	}))))
	err := r.Run(context.Background())
	require.ErrorContains(t, err, "agent alfa: agent panicked: kaboom")
	alfa, _ := r.Get("alfa")
	require.Equal(t, StatusTerminatedBadly, alfa.Status())
}

func TestMarkTerminatedBadlyIsIdempotent(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	var alfa *Agent
	alfa = NewAgent("alfa", NewSteps().At(0, func(context.Context, *Driver) error {
		alfa.MarkTerminatedBadly(errors.New("deliberate"))
		alfa.MarkTerminatedBadly(errors.New("second"))
		return nil
	}))
	r := NewRegistry(Config{})
	require.NoError(t, r.Register(alfa))
	require.Error(t, r.Run(context.Background()))
	require.Equal(t, StatusTerminatedBadly, alfa.Status())
	require.False(t, alfa.HasTerminatedNormally())
	require.EqualError(t, alfa.Err(), "deliberate")
}

func TestRegistryMisuse(t *testing.T) {
	defer log.Scope(t).Close(t)

	require.Error(t, NewAgent("loose", NewSteps()).Start(context.Background()))
	require.Error(t, NewRegistry(Config{}).StartAll(context.Background()))

	r := NewRegistry(Config{})
	a := NewAgent("alfa", NewSteps())
	require.NoError(t, r.Register(a))
	require.ErrorContains(t, r.Register(NewAgent("bravo", NewSteps())), "already registered")
	require.ErrorContains(t, NewRegistry(Config{}).Register(a), "agent alfa is already registered")

	require.ErrorContains(t,
		NewRegistry(Config{}).Register(NewAgent("x", NewSteps()), NewAgent("x", NewSteps())),
		`duplicate agent name "x"`)
	require.ErrorContains(t, NewRegistry(Config{}).Register(NewAgent("", NewSteps())), "without a name")

	// A rejected call does not count as the one registration.
	dup := NewRegistry(Config{})
	require.ErrorContains(t, dup.Register(NewAgent("y", NewSteps()), NewAgent("y", NewSteps())), "duplicate")
	require.NoError(t, dup.Register(NewAgent("y", NewSteps().At(0, noop))))
	require.Len(t, dup.Agents(), 1)

	_, ok := r.Get("bravo")
	require.False(t, ok)
	require.False(t, a.IsAlive())
	require.Equal(t, StatusPending, a.Status())
}
