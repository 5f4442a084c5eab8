// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package kvtxn implements interleave.TxnManager over an embedded badger
// database. Badger transactions are serializable snapshot transactions:
// reads see the snapshot taken when the transaction began, and a commit
// fails if a key the transaction read was written by a transaction that
// committed in the meantime.
package kvtxn

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/interleave"
	"github.com/cockroachdb/interleave/pkg/util/log"
	badger "github.com/dgraph-io/badger/v2"
)

// Manager opens badger transactions on behalf of agents.
type Manager struct {
	db *badger.DB
}

var _ interleave.TxnManager[*badger.Txn] = (*Manager)(nil)

// Open opens the badger database in dir, or an in-memory one if dir is
// empty. Badger's own logging goes to the log package under ctx's tags.
func Open(ctx context.Context, dir string) (*Manager, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir).WithSyncWrites(false).WithTruncate(true)
	}
	db, err := badger.Open(opts.WithLogger(logger{ctx: ctx}))
	if err != nil {
		return nil, errors.Wrap(err, "opening badger database")
	}
	return &Manager{db: db}, nil
}

// DB returns the underlying database.
func (m *Manager) DB() *badger.DB {
	return m.db
}

// Close closes the database.
func (m *Manager) Close() error {
	return m.db.Close()
}

// WithTransaction implements the interleave.TxnManager interface. Badger
// offers a single isolation level, so iso is only logged. A commit that
// loses a read-write conflict fails with interleave.ErrSerializationFailure.
func (m *Manager) WithTransaction(
	ctx context.Context, iso interleave.IsolationLevel, fn func(context.Context, *badger.Txn) error,
) error {
	if iso != interleave.DefaultIsolation && iso != interleave.Serializable && iso != interleave.Snapshot {
		log.VEventf(ctx, 1, "badger runs %s transactions as serializable", iso)
	}
	txn := m.db.NewTransaction(true /* update */)
	// Discarding a committed transaction is a no-op.
	defer txn.Discard()
	if err := fn(ctx, txn); err != nil {
		return Classify(err)
	}
	return Classify(errors.Wrap(txn.Commit(), "committing"))
}

// Classify marks badger errors with the interleave fault they represent.
// Other errors are returned unchanged.
func Classify(err error) error {
	if errors.Is(err, badger.ErrConflict) {
		return errors.Mark(err, interleave.ErrSerializationFailure)
	}
	return err
}

// logger adapts badger.Logger to the log package.
type logger struct {
	ctx context.Context
}

var _ badger.Logger = logger{}

func (l logger) Errorf(format string, args ...interface{}) {
	log.ErrorfDepth(l.ctx, 1, trimNewline(format), args...)
}

func (l logger) Warningf(format string, args ...interface{}) {
	log.WarningfDepth(l.ctx, 1, trimNewline(format), args...)
}

func (l logger) Infof(format string, args ...interface{}) {
	log.VEventfDepth(l.ctx, 1, 1, trimNewline(format), args...)
}

func (l logger) Debugf(format string, args ...interface{}) {
	log.VEventfDepth(l.ctx, 1, 3, trimNewline(format), args...)
}

func trimNewline(format string) string {
	return strings.TrimSuffix(format, "\n")
}
