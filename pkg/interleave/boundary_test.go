// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package interleave

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/util/leaktest"
	"github.com/cockroachdb/interleave/pkg/util/log"
	"github.com/stretchr/testify/require"
)

func TestParseIsolationLevel(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected IsolationLevel
	}{
		{"", DefaultIsolation},
		{"READ UNCOMMITTED", ReadUncommitted},
		{"read_committed", ReadCommitted},
		{"Repeatable-Read", RepeatableRead},
		{"serializable", Serializable},
		{"SI", Snapshot},
	} {
		l, err := ParseIsolationLevel(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.expected, l, tc.in)
	}
	for _, l := range IsolationLevels {
		parsed, err := ParseIsolationLevel(l.String())
		require.NoError(t, err)
		require.Equal(t, l, parsed)
	}
	_, err := ParseIsolationLevel("linearizable")
	require.ErrorContains(t, err, `unknown isolation level "linearizable"`)
}

func TestRunInTxn(t *testing.T) {
	defer log.Scope(t).Close(t)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		s := newMemStore()
		require.NoError(t, RunInTxn(ctx, s, Serializable, func(_ context.Context, txn *memTxn) error {
			txn.writes["k"] = "v"
			return nil
		}))
		require.Equal(t, "v", s.get("k"))
		require.Equal(t, []IsolationLevel{Serializable}, s.mu.isos)
	})

	t.Run("rollback signal", func(t *testing.T) {
		s := newMemStore()
		err := RunInTxn(ctx, s, ReadCommitted, func(_ context.Context, txn *memTxn) error {
			txn.writes["k"] = "v"
			return Rollback("changed my mind")
		})
		require.True(t, IsRollback(err))
		require.Equal(t, "rollback", FaultKind(err))
		require.Equal(t, "", s.get("k"))
		commits, rollbacks := s.counts()
		require.Equal(t, 0, commits)
		require.Equal(t, 1, rollbacks)
	})

	t.Run("panic", func(t *testing.T) {
		s := newMemStore()
		require.PanicsWithValue(t, "kaboom", func() {
			_ = RunInTxn(ctx, s, Serializable, func(_ context.Context, txn *memTxn) error {
				txn.writes["k"] = "v"
				panic("kaboom")
			})
		})
		require.Equal(t, "", s.get("k"))
		_, rollbacks := s.counts()
		require.Equal(t, 1, rollbacks)
	})

	t.Run("canceled", func(t *testing.T) {
		s := newMemStore()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		err := RunInTxn(ctx, s, Serializable, func(_ context.Context, txn *memTxn) error {
			txn.writes["k"] = "v"
			cancel()
			return nil
		})
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, "", s.get("k"))
	})
}

func TestInTxnNestedSteps(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	s := newMemStore()
	var seen [2]string
	var advances []int64
	r := NewRegistry(Config{
		ValidateOwnership: true,
		Knobs:             &TestingKnobs{OnAdvance: func(from int64) { advances = append(advances, from) }},
	})
	require.NoError(t, r.Register(
		// alfa writes at turns 0 and 1 inside one transaction, which commits
		// at turn 2.
		NewAgent("alfa", NewSteps().
			At(0, InTxn[*memTxn](s, Serializable, func(txn *memTxn) State {
				return NewSteps().At(0, txn.put("x", "1")).At(1, txn.put("y", "2")).Until(2)
			})).
			Claim(1, 2)),
		NewAgent("bravo", NewSteps().At(3, func(context.Context, *Driver) error {
			seen = [2]string{s.get("x"), s.get("y")}
			return nil
		})),
	))
	require.NoError(t, r.Run(context.Background()))
	require.Equal(t, [2]string{"1", "2"}, seen)
	require.Equal(t, []int64{0, 1, 2, 3}, advances)
}

func TestInTxnRollbackContinuesAgent(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	s := newMemStore()
	var seen string
	r := NewRegistry(Config{ValidateOwnership: true})
	require.NoError(t, r.Register(
		NewAgent("alfa", NewSteps().
			At(0, InTxn[*memTxn](s, Serializable, func(txn *memTxn) State {
				return NewSteps().
					At(0, txn.put("x", "1")).
					At(1, func(context.Context, *Driver) error { return Rollback("abort") })
			})).
			Claim(1).
			At(3, noop)),
		NewAgent("bravo", NewSteps().At(2, func(context.Context, *Driver) error {
			seen = s.get("x")
			return nil
		})),
	))
	require.NoError(t, r.Run(context.Background()))
	require.Equal(t, "", seen)
	alfa, _ := r.Get("alfa")
	require.True(t, alfa.HasTerminatedNormally())
	commits, rollbacks := s.counts()
	require.Equal(t, 0, commits)
	require.Equal(t, 1, rollbacks)
}

func TestInTxnFaultFailsAgent(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	s := newMemStore()
	conflict := errors.Mark(errors.New("could not write"), ErrLockConflict)
	r := NewRegistry(Config{})
	require.NoError(t, r.Register(NewAgent("alfa", NewSteps().
		At(0, InTxn[*memTxn](s, Serializable, func(txn *memTxn) State {
			return NewSteps().At(0, txn.put("x", "1")).At(1, func(context.Context, *Driver) error {
				return conflict
			})
		})))))
	err := r.Run(context.Background())
	require.True(t, errors.Is(err, ErrLockConflict))
	require.Equal(t, "lock conflict", FaultKind(err))
	require.Equal(t, "", s.get("x"))
}
