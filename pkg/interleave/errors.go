// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package interleave

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrRollback marks errors that request the rollback of the enclosing
// transaction. Such an error rolls back the transaction opened by InTxn but
// does not fail the agent.
var ErrRollback = errors.New("rollback requested")

// Rollback returns an error marked with ErrRollback.
func Rollback(reason string) error {
	return errors.Mark(errors.Newf("rollback: %s", reason), ErrRollback)
}

// IsRollback returns whether err requests a rollback.
func IsRollback(err error) bool {
	return errors.Is(err, ErrRollback)
}

// Marks attached by transaction managers to the storage errors they
// classify, so that scenarios can assert on the kind of fault independently
// of the storage engine.
var (
	ErrLockConflict         = errors.New("lock conflict")
	ErrSerializationFailure = errors.New("serialization failure")
	ErrDeadlock             = errors.New("deadlock")
)

// ErrPeerTerminated is returned by an agent that stopped waiting because
// another agent of the scenario terminated badly.
var ErrPeerTerminated = errors.New("peer agent terminated badly")

// FaultKind returns a short, engine independent description of err.
func FaultKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrLockConflict):
		return "lock conflict"
	case errors.Is(err, ErrSerializationFailure):
		return "serialization failure"
	case errors.Is(err, ErrDeadlock):
		return "deadlock"
	case IsRollback(err):
		return "rollback"
	case errors.Is(err, ErrPeerTerminated):
		return "peer terminated"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "interrupted"
	default:
		return "error"
	}
}
