// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/interleave"
	"github.com/cockroachdb/interleave/pkg/util/log"
	"github.com/cockroachdb/interleave/pkg/util/syncutil"
)

// TxnResult is the outcome of one transaction of a history.
type TxnResult struct {
	// Status is the final status of the transaction's agent.
	Status interleave.Status
	// Err is the agent's error, if it did not terminate normally.
	Err error
	// Committed is set if the transaction committed.
	Committed bool
}

func (r TxnResult) String() string {
	switch r.Status {
	case interleave.StatusTerminatedOk:
		if r.Committed {
			return "committed"
		}
		return "rolled back"
	case interleave.StatusTerminatedBadly:
		return interleave.FaultKind(r.Err)
	default:
		return r.Status.String()
	}
}

// Result is the record of one run of a collated history.
type Result struct {
	// Planned is the collated history that was run.
	Planned string
	// Isolations holds the isolation level of each transaction.
	Isolations []interleave.IsolationLevel
	// Actual is the history that actually ran, with each command's result.
	Actual string
	// Txns holds the outcome of each transaction.
	Txns []TxnResult
	// Verify is the verification history that ran after the transactions,
	// and Env the values it read. They are only set by Runner.Check, for
	// histories that were not aborted.
	Verify string
	Env    map[string]int64
	// CheckErr is set by Runner.Check if verification failed.
	CheckErr error
}

// Aborted returns whether a transaction of the history failed.
func (r *Result) Aborted() bool {
	for _, txn := range r.Txns {
		if txn.Status != interleave.StatusTerminatedOk {
			return true
		}
	}
	return false
}

func (r *Result) String() string {
	var b strings.Builder
	b.WriteString(r.Actual)
	for i, txn := range r.Txns {
		fmt.Fprintf(&b, "\ntxn %d: %s", i+1, txn)
	}
	if r.Verify != "" {
		fmt.Fprintf(&b, "\nverify: %s", r.Verify)
	}
	if r.CheckErr != nil {
		fmt.Fprintf(&b, "\ncheck failed: %v", r.CheckErr)
	}
	return b.String()
}

// Runner runs collated histories against a store. A Runner runs one history
// at a time.
type Runner struct {
	store Store
	cfg   interleave.Config
}

// NewRunner returns a runner over the store. Each history gets a registry
// configured by cfg, with ownership validation forced on.
func NewRunner(store Store, cfg interleave.Config) *Runner {
	cfg.ValidateOwnership = true
	return &Runner{store: store, cfg: cfg}
}

// recorder accumulates the actual history. Commands are recorded by the
// owner of the current turn, so the record follows turn order.
type recorder struct {
	mu struct {
		syncutil.Mutex
		actual []string
	}
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.actual = append(r.mu.actual, s)
}

func (r *recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.mu.actual, " ")
}

// Run runs a collated history: the k-th command runs at turn k, and each
// transaction runs in its own agent, inside one transaction that is opened
// at its first command and committed (or rolled back) at its last. If isos
// holds a single level, every transaction runs at it.
//
// Failures of the transactions are reported in the result. Run returns an
// error only if the history is malformed or could not be run.
func (r *Runner) Run(
	ctx context.Context, cmds []*Cmd, isos []interleave.IsolationLevel,
) (*Result, error) {
	txns := Split(cmds)
	if len(isos) == 1 && len(txns) > 1 {
		iso := isos[0]
		isos = make([]interleave.IsolationLevel, len(txns))
		for i := range isos {
			isos[i] = iso
		}
	}
	if len(isos) != len(txns) {
		return nil, errors.Newf("%d isolation levels for %d transactions", len(isos), len(txns))
	}
	turns := make([][]int64, len(txns))
	for k, c := range cmds {
		turns[c.Txn] = append(turns[c.Txn], int64(k))
	}
	for _, txn := range txns {
		if err := validateTxn(txn); err != nil {
			return nil, err
		}
	}

	rec := &recorder{}
	reg := interleave.NewRegistry(r.cfg)
	agents := make([]*interleave.Agent, len(txns))
	for i, txn := range txns {
		agents[i] = r.txnAgent(txn, turns[i], isos[i], rec)
	}
	if err := reg.Register(agents...); err != nil {
		return nil, err
	}
	log.VEventf(ctx, 1, "iso=%s history=%s", isos, String(cmds))
	if err := reg.StartAll(ctx); err != nil {
		return nil, err
	}
	defer reg.Stop()
	if err := reg.JoinAll(ctx); err != nil {
		return nil, err
	}

	res := &Result{
		Planned:    String(cmds),
		Isolations: isos,
		Actual:     rec.String(),
	}
	for i, a := range reg.Agents() {
		last := txns[i][len(txns[i])-1]
		res.Txns = append(res.Txns, TxnResult{
			Status:    a.Status(),
			Err:       a.Err(),
			Committed: a.HasTerminatedNormally() && last.Name == "C",
		})
	}
	return res, nil
}

// txnAgent returns the agent running one transaction's commands at the
// given turns.
func (r *Runner) txnAgent(
	txn []*Cmd, turns []int64, iso interleave.IsolationLevel, rec *recorder,
) *interleave.Agent {
	last := len(txn) - 1
	end := txn[last]
	var committing bool

	body := func(kv KV) interleave.State {
		env := map[string]int64{}
		run := func(c *Cmd) interleave.Action {
			return func(ctx context.Context, _ *interleave.Driver) error {
				s, err := c.execute(ctx, kv, env)
				rec.add(s)
				return err
			}
		}
		steps := interleave.NewSteps()
		for j, c := range txn[:last] {
			steps.At(turns[j], run(c))
		}
		if end.Name == "A" {
			return steps.At(turns[last], run(end))
		}
		// The commit happens once the nested State is done, at the commit
		// turn.
		steps.Until(turns[last])
		return interleave.StateFunc(func(ctx context.Context, d *interleave.Driver, turn int64) (interleave.Outcome, error) {
			o, err := steps.Step(ctx, d, turn)
			if o == interleave.TerminatedOk {
				committing = true
			}
			return o, err
		})
	}

	inTxn := interleave.InTxn[KV](r.store, iso, body)
	state := interleave.NewSteps().
		At(turns[0], func(ctx context.Context, d *interleave.Driver) error {
			err := inTxn(ctx, d)
			if committing {
				if err != nil {
					rec.add(fmt.Sprintf("%s[%s]", end, interleave.FaultKind(err)))
				} else {
					rec.add(end.String())
				}
			}
			return err
		}).
		Claim(turns[1:]...)
	return interleave.NewAgent(fmt.Sprintf("txn%d", end.Txn+1), state)
}

// runCmds runs commands in a single transaction, outside of any
// interleaving, and returns the rendered commands and the values they read.
func (r *Runner) runCmds(ctx context.Context, cmds []*Cmd) (string, map[string]int64, error) {
	var strs []string
	env := map[string]int64{}
	err := interleave.RunInTxn[KV](ctx, r.store, interleave.DefaultIsolation,
		func(ctx context.Context, kv KV) error {
			strs = strs[:0]
			for _, c := range cmds {
				s, err := c.execute(ctx, kv, env)
				if err != nil {
					return err
				}
				strs = append(strs, s)
			}
			return nil
		})
	return strings.Join(strs, " "), env, err
}

// Exec runs a history of commands without transaction indexes, such as
// "W(A,5) R(B)", in a single transaction outside of any interleaving. It
// returns the commands rendered with their results and the values they
// read or wrote.
func (r *Runner) Exec(ctx context.Context, history string) (string, map[string]int64, error) {
	cmds, err := ParseTxn(-1, history)
	if err != nil {
		return "", nil, err
	}
	return r.runCmds(ctx, cmds)
}
