// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package kvtxn

import (
	"context"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/interleave"
	"github.com/cockroachdb/interleave/pkg/interleave/history"
	badger "github.com/dgraph-io/badger/v2"
)

// KVStore is a history.Store over badger. All of its keys are namespaced
// under a prefix, so that concurrent runs can share a database.
type KVStore struct {
	mgr    *Manager
	prefix []byte
}

var _ history.Store = (*KVStore)(nil)

// NewKVStore returns a store keeping its keys under the given prefix.
func NewKVStore(mgr *Manager, prefix string) *KVStore {
	return &KVStore{mgr: mgr, prefix: []byte(prefix)}
}

// Manager returns the underlying transaction manager.
func (s *KVStore) Manager() *Manager {
	return s.mgr
}

func (s *KVStore) key(k string) []byte {
	res := make([]byte, 0, len(s.prefix)+len(k))
	return append(append(res, s.prefix...), k...)
}

// Reset implements the history.Store interface.
func (s *KVStore) Reset(ctx context.Context) error {
	var keys [][]byte
	err := s.mgr.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "resetting store")
	}
	err = s.mgr.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "resetting store")
}

// WithTransaction implements the history.Store interface.
func (s *KVStore) WithTransaction(
	ctx context.Context, iso interleave.IsolationLevel, fn func(context.Context, history.KV) error,
) error {
	return s.mgr.WithTransaction(ctx, iso, func(ctx context.Context, txn *badger.Txn) error {
		return fn(ctx, &badgerKV{store: s, txn: txn})
	})
}

type badgerKV struct {
	store *KVStore
	txn   *badger.Txn
}

var _ history.KV = (*badgerKV)(nil)

func decodeValue(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, errors.AssertionFailedf("malformed value of %d bytes", len(b))
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (kv *badgerKV) Get(_ context.Context, key string) (int64, bool, error) {
	item, err := kv.txn.Get(kv.store.key(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, Classify(err)
	}
	var v int64
	err = item.Value(func(b []byte) error {
		v, err = decodeValue(b)
		return err
	})
	return v, err == nil, err
}

func (kv *badgerKV) Put(_ context.Context, key string, value int64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(value))
	return Classify(kv.txn.Set(kv.store.key(key), b[:]))
}

func (kv *badgerKV) Del(_ context.Context, key string) error {
	return Classify(kv.txn.Delete(kv.store.key(key)))
}

func (kv *badgerKV) Scan(_ context.Context, start, end string) ([]history.KeyValue, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = kv.store.prefix
	it := kv.txn.NewIterator(opts)
	defer it.Close()

	prefixLen := len(kv.store.prefix)
	endKey := string(kv.store.key(end))
	var res []history.KeyValue
	for it.Seek(kv.store.key(start)); it.Valid(); it.Next() {
		item := it.Item()
		k := item.Key()
		if string(k) >= endKey {
			break
		}
		kvp := history.KeyValue{Key: string(k[prefixLen:])}
		if err := item.Value(func(b []byte) error {
			var err error
			kvp.Value, err = decodeValue(b)
			return err
		}); err != nil {
			return nil, err
		}
		res = append(res, kvp)
	}
	return res, nil
}
