// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package interleave

import (
	"context"

	"github.com/cockroachdb/interleave/pkg/util/syncutil"
)

func noop(context.Context, *Driver) error { return nil }

// memStore is an in-memory TxnManager buffering writes until commit.
type memStore struct {
	mu struct {
		syncutil.Mutex
		data      map[string]string
		commits   int
		rollbacks int
		isos      []IsolationLevel
	}
}

type memTxn struct {
	store  *memStore
	writes map[string]string
}

func newMemStore() *memStore {
	s := &memStore{}
	s.mu.data = make(map[string]string)
	return s
}

var _ TxnManager[*memTxn] = (*memStore)(nil)

func (s *memStore) WithTransaction(
	ctx context.Context, iso IsolationLevel, fn func(context.Context, *memTxn) error,
) error {
	s.mu.Lock()
	s.mu.isos = append(s.mu.isos, iso)
	s.mu.Unlock()
	txn := &memTxn{store: s, writes: make(map[string]string)}
	if err := fn(ctx, txn); err != nil {
		s.mu.Lock()
		s.mu.rollbacks++
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range txn.writes {
		s.mu.data[k] = v
	}
	s.mu.commits++
	return nil
}

func (s *memStore) get(k string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.data[k]
}

func (s *memStore) counts() (commits, rollbacks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.commits, s.mu.rollbacks
}

func (t *memTxn) put(k, v string) Action {
	return func(context.Context, *Driver) error {
		t.writes[k] = v
		return nil
	}
}
