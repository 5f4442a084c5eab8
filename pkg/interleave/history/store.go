// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package history

import (
	"context"

	"github.com/cockroachdb/interleave/pkg/interleave"
)

// KeyValue is a key and its integer value.
type KeyValue struct {
	Key   string
	Value int64
}

// KV is the transactional key-value interface histories are executed
// against. Keys are short upper-case names; values are integers.
type KV interface {
	// Get returns the value of the key, and whether it exists.
	Get(ctx context.Context, key string) (int64, bool, error)
	// Put writes the value of the key.
	Put(ctx context.Context, key string, value int64) error
	// Del deletes the key.
	Del(ctx context.Context, key string) error
	// Scan returns the keys in [start, end) in key order.
	Scan(ctx context.Context, start, end string) ([]KeyValue, error)
}

// Store opens transactions over a KV.
type Store interface {
	interleave.TxnManager[KV]
	// Reset deletes every key, so that the next history starts from an empty
	// store.
	Reset(ctx context.Context) error
}
