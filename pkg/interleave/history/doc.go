// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package history runs planned transaction histories against a Store, one
// agent per transaction, and verifies the state they leave behind. It
// enumerates every interleaving of the transactions' commands, so that an
// anomaly that a storage engine admits for some interleaving is found
// deterministically.
//
// Histories use the notation from the "Concurrency Control Chapter" of the
// Handbook of Database Technology, by Patrick O'Neil:
//
//	R(x)        read key "x"
//	SC(x-y)     scan keys in ["x", "y")
//	D(x)        delete key "x"
//	DR(x-y)     delete keys in ["x", "y")
//	W(x,y+z+1)  write the sum of previously read keys and constants to "x"
//	I(x)        increment key "x", which must have been read
//	C           commit
//	A           abort
//
// In a collated history every command carries the 1-based index of its
// transaction, as in "R1(A) R2(A) W1(A,A+1) C1 W2(A,A+1) C2". The actual
// history recorded by a run also carries each command's result, as in
// "R1(A)[0] R2(A)[0] W1(A,A+1)[1] C1 W2(A,A+1)[lock conflict]".
package history
