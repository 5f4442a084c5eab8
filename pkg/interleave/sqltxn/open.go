// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package sqltxn

import (
	"context"
	gosql "database/sql"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/util/log"
	"github.com/cockroachdb/interleave/pkg/util/retry"
	"github.com/go-sql-driver/mysql"

	// Registers the "pgx" driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Registers the "postgres" driver.
	_ "github.com/lib/pq"
	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverMySQL    = "mysql"
)

// Drivers lists the driver names accepted by Open.
var Drivers = []string{DriverSQLite, DriverPostgres, DriverPgx, DriverMySQL}

// sqlitePragmas are applied to every SQLite connection. WAL lets readers
// proceed while a writer holds the write lock. A zero busy timeout makes
// write-write conflicts, and writes from stale read snapshots, fail
// immediately instead of waiting: an agent waiting on a lock would never
// hand over its turn.
var sqlitePragmas = []string{
	"_pragma=journal_mode(WAL)",
	"_pragma=busy_timeout(0)",
	"_pragma=synchronous(NORMAL)",
}

// OpenSQLite opens, creating it if needed, the SQLite database at path.
// The database must be a file: WAL mode is not available in memory.
func OpenSQLite(ctx context.Context, path string) (*Manager, error) {
	dsn := path + "?"
	for i, p := range sqlitePragmas {
		if i > 0 {
			dsn += "&"
		}
		dsn += p
	}
	db, err := gosql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	if mode != "wal" {
		_ = db.Close()
		return nil, errors.Newf("opening %s: journal mode is %q, not wal", path, mode)
	}
	return NewManager(db, SQLite), nil
}

// mysqlDSN sets the session variables MySQL connections need on dsn. The
// lock wait timeout is set unless dsn already sets it; InnoDB counts it in
// whole seconds.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrap(err, "parsing mysql dsn")
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["innodb_lock_wait_timeout"]; !ok {
		secs := int64((DefaultLockTimeout + time.Second - 1) / time.Second)
		cfg.Params["innodb_lock_wait_timeout"] = strconv.FormatInt(secs, 10)
	}
	return cfg.FormatDSN(), nil
}

// Open opens a database with one of the supported drivers. Server
// databases are pinged until they accept connections or the context is
// done.
func Open(ctx context.Context, driver, dsn string) (*Manager, error) {
	dialect := Postgres
	switch driver {
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	case DriverPostgres, DriverPgx:
	case DriverMySQL:
		dialect = MySQL
		var err error
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Newf("unknown driver %q (expected one of %v)", driver, Drivers)
	}

	db, err := gosql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", driver)
	}
	opts := retry.Options{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		MaxRetries:     5,
	}
	for r := retry.StartWithCtx(ctx, opts); r.Next(); {
		if err = db.PingContext(ctx); err == nil {
			m := NewManager(db, dialect)
			if dialect == Postgres {
				m.SetLockTimeout(DefaultLockTimeout)
			}
			return m, nil
		}
		log.Warningf(ctx, "%s database not ready (attempt %d): %v", driver, r.CurrentAttempt()+1, err)
	}
	_ = db.Close()
	if err == nil {
		err = ctx.Err()
	}
	return nil, errors.Wrapf(err, "connecting to %s database", driver)
}
