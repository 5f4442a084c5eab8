// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package interleave

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/util/log"
)

// IsolationLevel is the ANSI isolation level requested for a transaction.
// Its meaning is owned by the TxnManager.
type IsolationLevel int

const (
	// DefaultIsolation leaves the choice to the storage engine.
	DefaultIsolation IsolationLevel = iota
	ReadUncommitted
	ReadCommitted
	RepeatableRead
	Serializable
	Snapshot
)

// IsolationLevels lists every explicit level, weakest first.
var IsolationLevels = []IsolationLevel{
	ReadUncommitted, ReadCommitted, RepeatableRead, Serializable, Snapshot,
}

func (l IsolationLevel) String() string {
	switch l {
	case DefaultIsolation:
		return "default"
	case ReadUncommitted:
		return "read-uncommitted"
	case ReadCommitted:
		return "read-committed"
	case RepeatableRead:
		return "repeatable-read"
	case Serializable:
		return "serializable"
	case Snapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// ParseIsolationLevel parses an isolation level name. Case, spaces,
// underscores and dashes are ignored, so "READ COMMITTED", "read_committed"
// and "read-committed" are equivalent.
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	norm := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, strings.ToLower(s))
	switch norm {
	case "", "default":
		return DefaultIsolation, nil
	case "readuncommitted", "ru":
		return ReadUncommitted, nil
	case "readcommitted", "rc":
		return ReadCommitted, nil
	case "repeatableread", "rr":
		return RepeatableRead, nil
	case "serializable", "ssi":
		return Serializable, nil
	case "snapshot", "si":
		return Snapshot, nil
	}
	return DefaultIsolation, errors.Newf("unknown isolation level %q", s)
}

// TxnManager opens transactions on behalf of agents. WithTransaction runs fn
// inside a transaction at the given isolation level and commits it if fn
// returns nil. Any error returned by fn rolls the transaction back and is
// returned after the rollback; an error committing is returned as well.
type TxnManager[T any] interface {
	WithTransaction(ctx context.Context, iso IsolationLevel, fn func(ctx context.Context, txn T) error) error
}

// RunInTxn runs body inside a transaction opened by mgr, guaranteeing the
// boundary contract whatever the manager does with panics and cancellation:
//
//   - if body returns an error, including one marked ErrRollback, the
//     transaction is rolled back and the error is returned;
//   - if body panics, the transaction is rolled back and the panic is
//     propagated afterwards;
//   - if the context is canceled by the time body returns, the transaction
//     is rolled back instead of committed;
//   - otherwise the transaction commits.
func RunInTxn[T any](
	ctx context.Context,
	mgr TxnManager[T],
	iso IsolationLevel,
	body func(ctx context.Context, txn T) error,
) error {
	var recovered interface{}
	err := mgr.WithTransaction(ctx, iso, func(ctx context.Context, txn T) (err error) {
		defer func() {
			if r := recover(); r != nil {
				recovered = r
				err = errors.Newf("panic in transaction body: %v", r)
			}
		}()
		if err := body(ctx, txn); err != nil {
			return err
		}
		return ctx.Err()
	})
	if recovered != nil {
		panic(recovered)
	}
	return err
}

// InTxn returns an Action that runs a contiguous range of the agent's turns
// inside one transaction. The action opens the transaction and drives the
// State returned by body with the agent's Driver, so that the nested State
// reads and advances the same counter as the enclosing one. The transaction
// commits once the nested State terminates normally; the enclosing State
// then advances past the commit turn.
//
// A rollback requested by the nested State is not a fault: the transaction
// is rolled back and the agent carries on. Every other error is returned as
// a step fault.
func InTxn[T any](mgr TxnManager[T], iso IsolationLevel, body func(txn T) State) Action {
	return func(ctx context.Context, d *Driver) error {
		err := RunInTxn(ctx, mgr, iso, func(ctx context.Context, txn T) error {
			return d.Run(ctx, body(txn))
		})
		if IsRollback(err) {
			log.VEventf(ctx, 1, "transaction rolled back: %v", err)
			return nil
		}
		return err
	}
}
