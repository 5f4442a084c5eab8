// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package sqltxn implements interleave.TxnManager over database/sql for
// SQLite (modernc.org/sqlite), PostgreSQL (lib/pq or pgx) and MySQL
// (go-sql-driver/mysql).
package sqltxn

import (
	"context"
	gosql "database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/interleave"
	"github.com/cockroachdb/interleave/pkg/util/log"
)

// Dialect is the SQL dialect spoken by the database.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
	MySQL
)

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	default:
		return "unknown"
	}
}

// Placeholder returns the i-th (1-based) statement placeholder.
func (d Dialect) Placeholder(i int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

// DefaultLockTimeout is the lock timeout of PostgreSQL transactions opened
// by Open.
const DefaultLockTimeout = 500 * time.Millisecond

// Manager opens database/sql transactions on behalf of agents.
type Manager struct {
	db      *gosql.DB
	dialect Dialect
	// lockTimeout bounds how long a PostgreSQL statement waits for a lock.
	// An agent blocked on a lock keeps its turn, so the holder of the lock
	// would never get to release it.
	lockTimeout time.Duration
}

var _ interleave.TxnManager[*gosql.Tx] = (*Manager)(nil)

// NewManager wraps an open database.
func NewManager(db *gosql.DB, dialect Dialect) *Manager {
	return &Manager{db: db, dialect: dialect}
}

// DB returns the underlying database.
func (m *Manager) DB() *gosql.DB {
	return m.db
}

// Dialect returns the database's dialect.
func (m *Manager) Dialect() Dialect {
	return m.dialect
}

// SetLockTimeout sets the lock timeout of the PostgreSQL transactions opened
// from now on. Zero leaves the server's setting alone. A statement that
// times out fails with interleave.ErrLockConflict.
func (m *Manager) SetLockTimeout(d time.Duration) {
	m.lockTimeout = d
}

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.db.Close()
}

// txOptions maps an isolation level onto the engine. SQLite transactions
// are always serializable, so no level is requested from it. Repeatable
// read is snapshot isolation in both PostgreSQL and InnoDB.
func (m *Manager) txOptions(iso interleave.IsolationLevel) *gosql.TxOptions {
	if m.dialect == SQLite {
		return nil
	}
	var level gosql.IsolationLevel
	switch iso {
	case interleave.DefaultIsolation:
		return nil
	case interleave.ReadUncommitted:
		level = gosql.LevelReadUncommitted
	case interleave.ReadCommitted:
		level = gosql.LevelReadCommitted
	case interleave.RepeatableRead, interleave.Snapshot:
		level = gosql.LevelRepeatableRead
	case interleave.Serializable:
		level = gosql.LevelSerializable
	}
	return &gosql.TxOptions{Isolation: level}
}

// WithTransaction implements the interleave.TxnManager interface. Errors
// from the driver are classified (see Classify).
//
// A panic in fn rolls the transaction back before propagating. If ctx is
// canceled, database/sql rolls the transaction back on its own.
func (m *Manager) WithTransaction(
	ctx context.Context, iso interleave.IsolationLevel, fn func(context.Context, *gosql.Tx) error,
) (retErr error) {
	tx, err := m.db.BeginTx(ctx, m.txOptions(iso))
	if err != nil {
		return Classify(errors.Wrap(err, "beginning transaction"))
	}
	finished := false
	defer func() {
		if finished {
			return
		}
		if err := tx.Rollback(); err != nil && !errors.Is(err, gosql.ErrTxDone) {
			log.Warningf(ctx, "rolling back: %v", err)
			retErr = errors.CombineErrors(retErr, Classify(errors.Wrap(err, "rolling back")))
		}
	}()

	if m.dialect == Postgres && m.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", m.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return Classify(errors.Wrap(err, "setting lock timeout"))
		}
	}
	if err := fn(ctx, tx); err != nil {
		return Classify(err)
	}
	finished = true
	if err := tx.Commit(); err != nil {
		return Classify(errors.Wrap(err, "committing"))
	}
	return nil
}
