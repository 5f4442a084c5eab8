// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package sqltxn

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/interleave"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// PostgreSQL SQLSTATE codes of the faults agents provoke on purpose.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// MySQL error numbers of the same faults.
const (
	errLockWaitTimeout = 1205
	errLockDeadlock    = 1213
	errLockNowait      = 3572
)

// Classify marks driver errors with the interleave fault they represent, so
// that scenarios can assert on interleave.ErrLockConflict and friends
// whatever the engine. Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		// Extended result codes such as SQLITE_BUSY_SNAPSHOT carry the primary
		// code in their low byte.
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return errors.Mark(err, interleave.ErrLockConflict)
		}
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return markSQLState(err, string(pqErr.Code))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return markSQLState(err, pgErr.Code)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errLockWaitTimeout, errLockNowait:
			return errors.Mark(err, interleave.ErrLockConflict)
		case errLockDeadlock:
			return errors.Mark(err, interleave.ErrDeadlock)
		}
	}
	return err
}

func markSQLState(err error, code string) error {
	switch code {
	case codeSerializationFailure:
		return errors.Mark(err, interleave.ErrSerializationFailure)
	case codeDeadlockDetected:
		return errors.Mark(err, interleave.ErrDeadlock)
	case codeLockNotAvailable:
		return errors.Mark(err, interleave.ErrLockConflict)
	}
	return err
}
