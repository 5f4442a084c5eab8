// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package sqltxn

import (
	"context"
	gosql "database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/cockroach-go/v2/crdb"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/interleave"
	"github.com/cockroachdb/interleave/pkg/interleave/history"
)

// KVTable is the table backing KVStore.
const KVTable = "interleave_kv"

// KVStore is a history.Store over a two-column table. All of its keys are
// namespaced under a prefix, so that concurrent runs can share a database.
type KVStore struct {
	mgr    *Manager
	prefix string
}

var _ history.Store = (*KVStore)(nil)

// NewKVStore returns a store keeping its keys under the given prefix.
func NewKVStore(mgr *Manager, prefix string) *KVStore {
	return &KVStore{mgr: mgr, prefix: prefix}
}

// Manager returns the underlying transaction manager.
func (s *KVStore) Manager() *Manager {
	return s.mgr
}

// Setup creates the table if it does not exist.
func (s *KVStore) Setup(ctx context.Context) error {
	keyType := "TEXT"
	switch s.mgr.dialect {
	case Postgres:
		// Byte order, so that scans agree with SQLite.
		keyType = `TEXT COLLATE "C"`
	case MySQL:
		keyType = "VARCHAR(255) COLLATE utf8mb4_bin"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (k %s PRIMARY KEY, v BIGINT NOT NULL)`, KVTable, keyType)
	return errors.Wrap(crdb.ExecuteTx(ctx, s.mgr.db, nil /* txopts */, func(tx *gosql.Tx) error {
		_, err := tx.ExecContext(ctx, ddl)
		return err
	}), "creating kv table")
}

// Reset implements the history.Store interface.
func (s *KVStore) Reset(ctx context.Context) error {
	q := s.query(`DELETE FROM %s WHERE k >= %s AND k < %s`)
	_, err := s.mgr.db.ExecContext(ctx, q, s.prefix, s.prefixEnd())
	return errors.Wrap(err, "resetting kv table")
}

// WithTransaction implements the history.Store interface.
func (s *KVStore) WithTransaction(
	ctx context.Context, iso interleave.IsolationLevel, fn func(context.Context, history.KV) error,
) error {
	return s.mgr.WithTransaction(ctx, iso, func(ctx context.Context, tx *gosql.Tx) error {
		return fn(ctx, &sqlKV{store: s, tx: tx})
	})
}

// query formats a statement template, substituting the table name and then
// the dialect's placeholders for the remaining verbs.
func (s *KVStore) query(format string) string {
	n := strings.Count(format, "%s") - 1
	args := []interface{}{KVTable}
	for i := 1; i <= n; i++ {
		args = append(args, s.mgr.dialect.Placeholder(i))
	}
	return fmt.Sprintf(format, args...)
}

// prefixEnd is the first key after every key of the store. Keys are
// upper-case letters, which sort before '~'.
func (s *KVStore) prefixEnd() string {
	return s.prefix + "~"
}

type sqlKV struct {
	store *KVStore
	tx    *gosql.Tx
}

var _ history.KV = (*sqlKV)(nil)

func (kv *sqlKV) Get(ctx context.Context, key string) (int64, bool, error) {
	var v int64
	err := kv.tx.QueryRowContext(ctx, kv.store.query(`SELECT v FROM %s WHERE k = %s`),
		kv.store.prefix+key).Scan(&v)
	if errors.Is(err, gosql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, Classify(err)
	}
	return v, true, nil
}

func (kv *sqlKV) Put(ctx context.Context, key string, value int64) error {
	upsert := `INSERT INTO %s (k, v) VALUES (%s, %s) ON CONFLICT (k) DO UPDATE SET v = excluded.v`
	if kv.store.mgr.dialect == MySQL {
		upsert = `INSERT INTO %s (k, v) VALUES (%s, %s) ON DUPLICATE KEY UPDATE v = VALUES(v)`
	}
	_, err := kv.tx.ExecContext(ctx, kv.store.query(upsert), kv.store.prefix+key, value)
	return Classify(err)
}

func (kv *sqlKV) Del(ctx context.Context, key string) error {
	_, err := kv.tx.ExecContext(ctx, kv.store.query(`DELETE FROM %s WHERE k = %s`), kv.store.prefix+key)
	return Classify(err)
}

func (kv *sqlKV) Scan(ctx context.Context, start, end string) ([]history.KeyValue, error) {
	rows, err := kv.tx.QueryContext(ctx,
		kv.store.query(`SELECT k, v FROM %s WHERE k >= %s AND k < %s ORDER BY k`),
		kv.store.prefix+start, kv.store.prefix+end)
	if err != nil {
		return nil, Classify(err)
	}
	defer rows.Close()
	var res []history.KeyValue
	for rows.Next() {
		var kvp history.KeyValue
		if err := rows.Scan(&kvp.Key, &kvp.Value); err != nil {
			return nil, Classify(err)
		}
		kvp.Key = strings.TrimPrefix(kvp.Key, kv.store.prefix)
		res = append(res, kvp)
	}
	return res, Classify(rows.Err())
}
