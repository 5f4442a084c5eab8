// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/interleave"
	"github.com/cockroachdb/interleave/pkg/interleave/history"
	"github.com/spf13/cobra"
)

type checkConfig struct {
	txns       []string
	isolations []string
	pre        string
	verify     string
	expect     map[string]int64
	all        bool
}

func makeCheckCommand(g *globalConfig) *cobra.Command {
	var config checkConfig
	runCmdFunc := func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.Context(), g, config, cmd.OutOrStdout())
	}
	cmd := &cobra.Command{
		Use:   "check --txn <history> --txn <history> ...",
		Short: "Run every interleaving of the given transactions and verify the final state.",
		Long: `Run every interleaving of the given transactions and verify the final state.

Transactions are written in the notation of the history package, for example
"R(A) W(A,A+1) C". Histories in which a transaction fails with a storage fault
(a lock conflict, a serialization failure, a deadlock) are reported as aborted.
The others run the verification history and must end in the expected state.`,
		Args: cobra.NoArgs,
		RunE: runCmdFunc,
	}
	cmd.Flags().StringArrayVar(&config.txns, "txn", nil, "history of a transaction; repeat for each transaction")
	cmd.Flags().StringSliceVar(&config.isolations, "isolation", []string{interleave.Serializable.String()}, "isolation levels to run each transaction at")
	cmd.Flags().StringVar(&config.pre, "pre", "", "history run before each interleaving, such as \"W(A,5)\"")
	cmd.Flags().StringVar(&config.verify, "verify", "", "history run after each interleaving to read the final state, such as \"R(A) R(B)\"")
	cmd.Flags().StringToInt64Var(&config.expect, "expect", nil, "expected final state, such as A=2,B=1")
	cmd.Flags().BoolVar(&config.all, "all", false, "print every history, not only the failed ones")
	_ = cmd.MarkFlagRequired("txn")
	return cmd
}

func parseIsolations(names []string) ([]interleave.IsolationLevel, error) {
	if len(names) == 0 {
		return []interleave.IsolationLevel{interleave.Serializable}, nil
	}
	isos := make([]interleave.IsolationLevel, len(names))
	for i, name := range names {
		var err error
		if isos[i], err = interleave.ParseIsolationLevel(name); err != nil {
			return nil, err
		}
	}
	return isos, nil
}

// expectAny returns a check accepting a final state that matches one of
// the given states. A state matches if its keys have the given values;
// other keys are not checked. No states accept everything.
func expectAny(states []map[string]int64) func(map[string]int64) error {
	return func(env map[string]int64) error {
		if len(states) == 0 {
			return nil
		}
		for _, state := range states {
			match := true
			for k, v := range state {
				if env[k] != v {
					match = false
					break
				}
			}
			if match {
				return nil
			}
		}
		expected := make([]string, len(states))
		for i, state := range states {
			expected[i] = formatEnv(state)
		}
		return errors.Newf("final state %s matches none of: %s", formatEnv(env), strings.Join(expected, "; "))
	}
}

// formatEnv renders a state as "A=1 B=2".
func formatEnv(env map[string]int64) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, env[k])
	}
	return strings.Join(parts, " ")
}

// printReport writes the failed histories, or all of them, and a summary.
func printReport(w io.Writer, rep *history.Report, all bool) {
	for _, res := range rep.Results {
		if !all && res.CheckErr == nil {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", res.Planned, res.Isolations)
		for _, line := range strings.Split(res.String(), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	passed, aborted, failed := rep.Counts()
	fmt.Fprintf(w, "%s: %d passed, %d aborted, %d failed\n", rep.Name, passed, aborted, failed)
}

func runCheck(ctx context.Context, g *globalConfig, config checkConfig, w io.Writer) error {
	isos, err := parseIsolations(config.isolations)
	if err != nil {
		return err
	}
	f, err := newStoreFactory(ctx, g.store)
	if err != nil {
		return err
	}
	defer f.close(ctx)
	store, release, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = release() }()
	rc, stop, err := g.runnerConfig(ctx)
	if err != nil {
		return err
	}
	defer stop()

	var states []map[string]int64
	if len(config.expect) > 0 {
		states = append(states, config.expect)
	}
	r := history.NewRunner(store, rc)
	rep, err := r.Check(ctx, "check", config.txns, isos, &history.Verifier{
		PreHistory: config.pre,
		History:    config.verify,
		Check:      expectAny(states),
	})
	if err != nil {
		return err
	}
	printReport(w, rep, config.all)
	return rep.Err()
}
