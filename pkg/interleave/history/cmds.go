// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package history

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/interleave"
)

// cmdFn executes a command in a transaction. env holds the values the
// transaction has read or written so far. The returned string describes
// the result, such as "[5]".
type cmdFn func(ctx context.Context, c *Cmd, kv KV, env map[string]int64) (string, error)

// readCmd reads a value and stores it in the env. Missing keys read as 0.
func readCmd(ctx context.Context, c *Cmd, kv KV, env map[string]int64) (string, error) {
	value, _, err := kv.Get(ctx, c.Key)
	if err != nil {
		return "", err
	}
	env[c.Key] = value
	return fmt.Sprintf("[%d]", value), nil
}

// deleteCmd deletes the value at the given key.
func deleteCmd(ctx context.Context, c *Cmd, kv KV, _ map[string]int64) (string, error) {
	return "", kv.Del(ctx, c.Key)
}

// deleteRngCmd deletes the values in [key, endKey).
func deleteRngCmd(ctx context.Context, c *Cmd, kv KV, _ map[string]int64) (string, error) {
	kvs, err := kv.Scan(ctx, c.Key, c.EndKey)
	if err != nil {
		return "", err
	}
	for _, kvp := range kvs {
		if err := kv.Del(ctx, kvp.Key); err != nil {
			return "", err
		}
	}
	return "", nil
}

// scanCmd reads the values in [key, endKey) into the env.
func scanCmd(ctx context.Context, c *Cmd, kv KV, env map[string]int64) (string, error) {
	kvs, err := kv.Scan(ctx, c.Key, c.EndKey)
	if err != nil {
		return "", err
	}
	var vals []string
	for _, kvp := range kvs {
		env[kvp.Key] = kvp.Value
		vals = append(vals, strconv.FormatInt(kvp.Value, 10))
	}
	return fmt.Sprintf("[%s]", strings.Join(vals, " ")), nil
}

// incCmd adds one to the value of the key in the env and writes it. The
// key must have been read first.
func incCmd(ctx context.Context, c *Cmd, kv KV, env map[string]int64) (string, error) {
	val, ok := env[c.Key]
	if !ok {
		return "", errors.Newf("can't increment key %q; not yet read", c.Key)
	}
	r := val + 1
	if err := kv.Put(ctx, c.Key, r); err != nil {
		return "", err
	}
	env[c.Key] = r
	return fmt.Sprintf("[%d]", r), nil
}

// writeCmd sums values from the env and numeric constants, as listed by
// the "+"-separated EndKey, and writes the sum. Keys missing from the env
// count as 0.
func writeCmd(ctx context.Context, c *Cmd, kv KV, env map[string]int64) (string, error) {
	sum := int64(0)
	for _, sp := range strings.Split(c.EndKey, "+") {
		if constant, err := strconv.Atoi(sp); err != nil {
			sum += env[sp]
		} else {
			sum += int64(constant)
		}
	}
	if err := kv.Put(ctx, c.Key, sum); err != nil {
		return "", err
	}
	env[c.Key] = sum
	return fmt.Sprintf("[%d]", sum), nil
}

// commitCmd does nothing: the transaction commits when its body returns.
func commitCmd(context.Context, *Cmd, KV, map[string]int64) (string, error) {
	return "", nil
}

// abortCmd requests a rollback.
func abortCmd(_ context.Context, c *Cmd, _ KV, _ map[string]int64) (string, error) {
	return "", interleave.Rollback(fmt.Sprintf("txn %d aborts", c.Txn+1))
}

// execute runs the command and renders it with its result.
func (c *Cmd) execute(ctx context.Context, kv KV, env map[string]int64) (string, error) {
	res, err := c.fn(ctx, c, kv, env)
	if err != nil && !interleave.IsRollback(err) {
		return fmt.Sprintf("%s[%s]", c, interleave.FaultKind(err)), err
	}
	return c.String() + res, err
}
