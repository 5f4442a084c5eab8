// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/interleave/history"
	"github.com/cockroachdb/interleave/pkg/interleave/kvtxn"
	"github.com/cockroachdb/interleave/pkg/interleave/sqltxn"
	"github.com/cockroachdb/interleave/pkg/util/log"
	"github.com/google/uuid"
)

const (
	storeSQLite   = sqltxn.DriverSQLite
	storePostgres = sqltxn.DriverPostgres
	storePgx      = sqltxn.DriverPgx
	storeMySQL    = sqltxn.DriverMySQL
	storeBadger   = "badger"
)

var storeKinds = []string{storeSQLite, storePostgres, storePgx, storeMySQL, storeBadger}

// dsnEnv names the environment variable holding the default DSN.
const dsnEnv = "INTERLEAVE_DSN"

type storeConfig struct {
	kind string
	dsn  string
}

func defaultStoreConfig() storeConfig {
	return storeConfig{kind: storeSQLite, dsn: os.Getenv(dsnEnv)}
}

// storeFactory opens one store per scenario. Stores opened by a factory
// share a database when the configuration names one, and are kept apart by
// a unique key prefix.
type storeFactory struct {
	cfg storeConfig
	// tmpDir holds the per-scenario SQLite databases when no DSN is given.
	tmpDir string
	sql    *sqltxn.Manager
	badger *kvtxn.Manager
}

func newStoreFactory(ctx context.Context, cfg storeConfig) (*storeFactory, error) {
	f := &storeFactory{cfg: cfg}
	var err error
	switch {
	case cfg.kind == storeSQLite && cfg.dsn == "":
		f.tmpDir, err = os.MkdirTemp("", "interleave")
	case cfg.kind == storeSQLite, cfg.kind == storePostgres, cfg.kind == storePgx, cfg.kind == storeMySQL:
		f.sql, err = sqltxn.Open(ctx, cfg.kind, cfg.dsn)
	case cfg.kind == storeBadger && cfg.dsn != "":
		f.badger, err = kvtxn.Open(ctx, cfg.dsn)
	case cfg.kind == storeBadger:
	default:
		return nil, errors.Newf("unknown store %q (expected one of %v)", cfg.kind, storeKinds)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// parallelSafe returns whether scenarios can run concurrently. Concurrent
// scenarios on one SQLite database would conflict on its write lock.
func (f *storeFactory) parallelSafe() bool {
	return f.cfg.kind != storeSQLite || f.sql == nil
}

// open returns a fresh store, and a function releasing it.
func (f *storeFactory) open(ctx context.Context) (history.Store, func() error, error) {
	prefix := uuid.NewString() + "/"
	switch {
	case f.sql != nil:
		s := sqltxn.NewKVStore(f.sql, prefix)
		if err := s.Setup(ctx); err != nil {
			return nil, nil, err
		}
		return s, func() error { return s.Reset(ctx) }, nil

	case f.tmpDir != "":
		mgr, err := sqltxn.OpenSQLite(ctx, filepath.Join(f.tmpDir, prefix[:len(prefix)-1]+".db"))
		if err != nil {
			return nil, nil, err
		}
		s := sqltxn.NewKVStore(mgr, prefix)
		if err := s.Setup(ctx); err != nil {
			return nil, nil, errors.CombineErrors(err, mgr.Close())
		}
		return s, mgr.Close, nil

	case f.badger != nil:
		s := kvtxn.NewKVStore(f.badger, prefix)
		return s, func() error { return s.Reset(ctx) }, nil

	default:
		mgr, err := kvtxn.Open(ctx, "")
		if err != nil {
			return nil, nil, err
		}
		return kvtxn.NewKVStore(mgr, prefix), mgr.Close, nil
	}
}

func (f *storeFactory) close(ctx context.Context) {
	var err error
	if f.sql != nil {
		err = errors.CombineErrors(err, f.sql.Close())
	}
	if f.badger != nil {
		err = errors.CombineErrors(err, f.badger.Close())
	}
	if f.tmpDir != "" {
		err = errors.CombineErrors(err, os.RemoveAll(f.tmpDir))
	}
	if err != nil {
		log.Warningf(ctx, "closing store: %v", err)
	}
}
