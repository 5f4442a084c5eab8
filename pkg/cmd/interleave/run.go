// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/interleave/history"
	"github.com/cockroachdb/interleave/pkg/util/log"
	"github.com/cockroachdb/logtags"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// scenario is an entry of a scenario file:
//
//	scenarios:
//	  - name: lost update
//	    isolation: [serializable, snapshot]
//	    pre: W(A,0)
//	    txns:
//	      - R(A) W(A,A+1) C
//	      - R(A) W(A,A+1) C
//	    verify: R(A)
//	    expect:
//	      - {A: 2}
type scenario struct {
	Name      string   `yaml:"name"`
	Isolation []string `yaml:"isolation"`
	Pre       string   `yaml:"pre"`
	Txns      []string `yaml:"txns"`
	Verify    string   `yaml:"verify"`
	// Expect lists the allowed final states.
	Expect []map[string]int64 `yaml:"expect"`
}

type scenarioFile struct {
	Scenarios []scenario `yaml:"scenarios"`
}

func loadScenarios(r io.Reader) ([]scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var file scenarioFile
	if err := dec.Decode(&file); err != nil {
		return nil, errors.Wrap(err, "parsing scenarios")
	}
	if len(file.Scenarios) == 0 {
		return nil, errors.New("no scenarios")
	}
	names := map[string]struct{}{}
	for i, sc := range file.Scenarios {
		if sc.Name == "" {
			return nil, errors.Newf("scenario %d has no name", i+1)
		}
		if _, ok := names[sc.Name]; ok {
			return nil, errors.Newf("duplicate scenario %q", sc.Name)
		}
		names[sc.Name] = struct{}{}
		if len(sc.Txns) == 0 {
			return nil, errors.Newf("scenario %q has no transactions", sc.Name)
		}
	}
	return file.Scenarios, nil
}

type runConfig struct {
	parallel int
	all      bool
}

func makeRunCommand(g *globalConfig) *cobra.Command {
	config := runConfig{parallel: 1}
	runCmdFunc := func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		scenarios, err := loadScenarios(f)
		if err != nil {
			return errors.Wrapf(err, "%s", args[0])
		}
		return runScenarios(cmd.Context(), g, config, scenarios, cmd.OutOrStdout())
	}
	cmd := &cobra.Command{
		Use:   "run <scenarios.yaml>",
		Short: "Check the scenarios of a YAML file.",
		Long: `Check the scenarios of a YAML file. Each scenario is checked like the check
command does, against its own store, and must end in one of its allowed final
states.`,
		Args: cobra.ExactArgs(1),
		RunE: runCmdFunc,
	}
	cmd.Flags().IntVar(&config.parallel, "parallel", config.parallel, "number of scenarios to run concurrently")
	cmd.Flags().BoolVar(&config.all, "all", config.all, "print every history, not only the failed ones")
	return cmd
}

func runScenarios(
	ctx context.Context, g *globalConfig, config runConfig, scenarios []scenario, w io.Writer,
) error {
	f, err := newStoreFactory(ctx, g.store)
	if err != nil {
		return err
	}
	defer f.close(ctx)
	if config.parallel > 1 && !f.parallelSafe() {
		log.Warningf(ctx, "running scenarios one at a time on a shared %s database", g.store.kind)
		config.parallel = 1
	}
	if config.parallel < 1 {
		config.parallel = 1
	}
	rc, stop, err := g.runnerConfig(ctx)
	if err != nil {
		return err
	}
	defer stop()

	reports := make([]*history.Report, len(scenarios))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(config.parallel)
	for i, sc := range scenarios {
		i, sc := i, sc
		eg.Go(func() error {
			ctx := logtags.AddTag(ctx, "scenario", sc.Name)
			isos, err := parseIsolations(sc.Isolation)
			if err != nil {
				return errors.Wrapf(err, "scenario %q", sc.Name)
			}
			store, release, err := f.open(ctx)
			if err != nil {
				return errors.Wrapf(err, "scenario %q", sc.Name)
			}
			rep, err := history.NewRunner(store, rc).Check(ctx, sc.Name, sc.Txns, isos, &history.Verifier{
				PreHistory: sc.Pre,
				History:    sc.Verify,
				Check:      expectAny(sc.Expect),
			})
			err = errors.CombineErrors(err, release())
			if err != nil {
				return errors.Wrapf(err, "scenario %q", sc.Name)
			}
			reports[i] = rep
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	var buf bytes.Buffer
	var failed []string
	for _, rep := range reports {
		printReport(&buf, rep, config.all)
		if rep.Err() != nil {
			failed = append(failed, rep.Name)
		}
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	if len(failed) > 0 {
		return errors.Newf("%d of %d scenarios failed: %v", len(failed), len(scenarios), failed)
	}
	return nil
}
