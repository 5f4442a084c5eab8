// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package history

import "github.com/cockroachdb/interleave/pkg/interleave"

// Enumerate returns every collated history of the given transactions: each
// keeps the order of every transaction's commands, and they differ in how
// the transactions interleave. Histories are ordered by the transaction
// index of their commands. If equal is set, the transactions are identical
// and only the histories starting with the first one are returned.
func Enumerate(txns [][]*Cmd, equal bool) [][]*Cmd {
	total := 0
	for _, txn := range txns {
		total += len(txn)
	}
	if total == 0 {
		return nil
	}
	// next[i] is the position of the next command of txns[i].
	next := make([]int, len(txns))
	h := make([]*Cmd, 0, total)
	var results [][]*Cmd
	var walk func()
	walk = func() {
		if len(h) == total {
			results = append(results, append([]*Cmd(nil), h...))
			return
		}
		for i, txn := range txns {
			if equal && len(h) == 0 && i > 0 {
				break
			}
			if next[i] == len(txn) {
				continue
			}
			h = append(h, txn[next[i]])
			next[i]++
			walk()
			next[i]--
			h = h[:len(h)-1]
		}
	}
	walk()
	return results
}

// EnumerateIsolations returns every combination of isolation levels across
// numTxns transactions. The inner slice holds the level of each
// transaction.
func EnumerateIsolations(
	numTxns int, levels []interleave.IsolationLevel,
) [][]interleave.IsolationLevel {
	// Count from 0 to pow(len(levels), numTxns)-1 and examine n-ary digits
	// to get all possible combinations.
	n := len(levels)
	total := 1
	for i := 0; i < numTxns; i++ {
		total *= n
	}
	var result [][]interleave.IsolationLevel
	for i := 0; i < total; i++ {
		desc := make([]interleave.IsolationLevel, numTxns)
		val := i
		for j := 0; j < numTxns; j++ {
			desc[j] = levels[val%n]
			val /= n
		}
		result = append(result, desc)
	}
	return result
}

// areEqual returns whether all transaction histories are the same.
func areEqual(txns []string) bool {
	for i := 1; i < len(txns); i++ {
		if txns[i] != txns[0] {
			return false
		}
	}
	return true
}
