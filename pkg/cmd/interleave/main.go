// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Command interleave runs planned transaction histories against a storage
// engine, deterministically, in every interleaving.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/interleave"
	"github.com/cockroachdb/interleave/pkg/util/log"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// globalConfig holds the flags shared by every subcommand.
type globalConfig struct {
	store       storeConfig
	verbosity   int32
	waitTimeout time.Duration
	metricsAddr string
}

func defaultGlobalConfig() globalConfig {
	return globalConfig{
		store:       defaultStoreConfig(),
		waitTimeout: interleave.DefaultWaitTimeout,
	}
}

func makeInterleaveCommand() *cobra.Command {
	cfg := defaultGlobalConfig()
	command := &cobra.Command{
		Use:     "interleave [command] (flags)",
		Short:   "interleave runs transaction histories in every interleaving against a storage engine.",
		Version: "v0.1",
		Long: `interleave runs transaction histories in every interleaving against a storage engine.

Each transaction runs in its own agent, and the agents take turns: the k-th
command of a history runs at turn k, so every run of a history is the same.

Typical usage:
    interleave check --txn "R(A) W(A,A+1) C" --txn "R(A) W(A,A+1) C" --verify "R(A)" --expect A=2
        Run both increments in every interleaving against a temporary SQLite database.

    interleave run scenarios.yaml --store badger --parallel 4
        Run the scenarios of a file against in-memory badger databases.

The default DSN is read from the INTERLEAVE_DSN environment variable, which
may be set in a .env file in the working directory.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetVerbosity(cfg.verbosity)
		},
	}
	cfg.addFlags(command.PersistentFlags())

	command.AddCommand(makeCheckCommand(&cfg))
	command.AddCommand(makeRunCommand(&cfg))
	return command
}

func (cfg *globalConfig) addFlags(f *pflag.FlagSet) {
	f.StringVar(&cfg.store.kind, "store", cfg.store.kind, fmt.Sprintf("storage engine, one of %v", storeKinds))
	f.StringVar(&cfg.store.dsn, "dsn", cfg.store.dsn, "database to use: a file for sqlite, a directory for badger, a connection URL for postgres and pgx, a go-sql-driver DSN for mysql")
	f.Int32VarP(&cfg.verbosity, "verbosity", "v", cfg.verbosity, "log verbosity")
	f.DurationVar(&cfg.waitTimeout, "wait-timeout", cfg.waitTimeout, "bound on each wait of an agent for its turn")
	f.StringVar(&cfg.metricsAddr, "metrics-addr", cfg.metricsAddr, "address to serve prometheus metrics on while running")
}

// runnerConfig returns the registry configuration of runners, and starts
// serving their metrics if requested. The returned function stops serving.
func (cfg *globalConfig) runnerConfig(ctx context.Context) (interleave.Config, func(), error) {
	rc := interleave.Config{WaitTimeout: cfg.waitTimeout}
	if cfg.metricsAddr == "" {
		return rc, func() {}, nil
	}
	rc.Metrics = interleave.NewMetrics()
	reg := prometheus.NewRegistry()
	if err := rc.Metrics.Register(reg); err != nil {
		return rc, nil, err
	}
	ln, err := net.Listen("tcp", cfg.metricsAddr)
	if err != nil {
		return rc, nil, errors.Wrap(err, "serving metrics")
	}
	srv := &http.Server{
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warningf(ctx, "metrics server: %v", err)
		}
	}()
	log.Infof(ctx, "serving metrics on %s", ln.Addr())
	return rc, func() { _ = srv.Close() }, nil
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
	}
	cmd := makeInterleaveCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %+v\n", err)
		os.Exit(1)
	}
}
