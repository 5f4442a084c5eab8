// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package history

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/interleave"
	"github.com/cockroachdb/interleave/pkg/util/log"
)

// Verifier first executes the pre-history, which sets existing values as
// necessary, then lets the transactions run and then executes the
// verification history and invokes Check to verify the environment (map
// from key to value) it read.
type Verifier struct {
	PreHistory string
	History    string
	Check      func(env map[string]int64) error
}

// Report holds the results of checking every interleaving of a set of
// transactions.
type Report struct {
	Name    string
	Results []*Result
}

// Counts returns the number of histories that passed verification, that
// were aborted by a transaction failure, and that failed verification.
func (r *Report) Counts() (passed, aborted, failed int) {
	for _, res := range r.Results {
		switch {
		case res.CheckErr != nil:
			failed++
		case res.Aborted():
			aborted++
		default:
			passed++
		}
	}
	return passed, aborted, failed
}

// Err returns the combined verification failures.
func (r *Report) Err() error {
	var err error
	for _, res := range r.Results {
		if res.CheckErr != nil {
			err = errors.CombineErrors(err, errors.Wrapf(res.CheckErr,
				"%s: iso=%s history=%q actual=%q verify=%q",
				r.Name, res.Isolations, res.Planned, res.Actual, res.Verify))
		}
	}
	return err
}

// Check runs every interleaving of the transactions, for every combination
// of the given isolation levels, and verifies each one. Histories in which
// a transaction failed with a storage fault are counted as aborted and are
// not verified; a transaction failing for any other reason fails the
// history. Without isolation levels, every transaction runs at
// Serializable.
func (r *Runner) Check(
	ctx context.Context, name string, txns []string, isos []interleave.IsolationLevel, v *Verifier,
) (*Report, error) {
	log.Infof(ctx, "verifying all possible histories for the %q anomaly", name)
	parsed, err := ParseTxns(txns)
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = &Verifier{}
	}
	pre, err := ParseTxn(-1, v.PreHistory)
	if err != nil {
		return nil, errors.Wrap(err, "pre-history")
	}
	verify, err := ParseTxn(-1, v.History)
	if err != nil {
		return nil, errors.Wrap(err, "verification history")
	}

	if len(isos) == 0 {
		isos = []interleave.IsolationLevel{interleave.Serializable}
	}
	rep := &Report{Name: name}
	histories := Enumerate(parsed, areEqual(txns))
	for _, iso := range EnumerateIsolations(len(parsed), isos) {
		for _, h := range histories {
			res, err := r.runVerified(ctx, h, iso, pre, verify, v.Check)
			if err != nil {
				return nil, errors.Wrapf(err, "running %q", String(h))
			}
			rep.Results = append(rep.Results, res)
		}
	}
	passed, aborted, failed := rep.Counts()
	log.Infof(ctx, "%q: %d histories passed, %d aborted, %d failed", name, passed, aborted, failed)
	return rep, nil
}

func (r *Runner) runVerified(
	ctx context.Context,
	h []*Cmd,
	isos []interleave.IsolationLevel,
	pre, verify []*Cmd,
	check func(map[string]int64) error,
) (*Result, error) {
	if err := r.store.Reset(ctx); err != nil {
		return nil, err
	}
	if len(pre) > 0 {
		if s, _, err := r.runCmds(ctx, pre); err != nil {
			return nil, errors.Wrapf(err, "pre-history %s", s)
		}
	}
	res, err := r.Run(ctx, h, isos)
	if err != nil {
		return nil, err
	}
	for i, txn := range res.Txns {
		if txn.Status == interleave.StatusTerminatedBadly && interleave.FaultKind(txn.Err) == "error" {
			res.CheckErr = errors.CombineErrors(res.CheckErr,
				errors.Wrapf(txn.Err, "txn %d: unexpected failure", i+1))
		}
	}
	if res.CheckErr != nil || res.Aborted() {
		log.VEventf(ctx, 1, "iso=%s history=%q: %s", isos, res.Actual, res.Txns)
		return res, nil
	}
	if len(verify) > 0 {
		var env map[string]int64
		res.Verify, env, err = r.runCmds(ctx, verify)
		if err != nil {
			return nil, errors.Wrapf(err, "verification history %s", res.Verify)
		}
		res.Env = env
	}
	if check != nil {
		res.CheckErr = check(res.Env)
	}
	if res.CheckErr == nil {
		log.VEventf(ctx, 1, "PASSED: iso=%s history=%q", isos, res.Actual)
	}
	return res, nil
}
