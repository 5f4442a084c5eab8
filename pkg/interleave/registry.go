// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package interleave

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/interleave/pkg/util/log"
	"github.com/cockroachdb/interleave/pkg/util/syncutil"
)

// DefaultWaitTimeout bounds every wait on the turn counter.
const DefaultWaitTimeout = 100 * time.Millisecond

// Config configures a Registry.
type Config struct {
	// WaitTimeout bounds every wait on the turn counter. Defaults to
	// DefaultWaitTimeout.
	WaitTimeout time.Duration
	// ValidateOwnership makes Register check that every turn from 0 to the
	// highest owned turn is owned by exactly one agent. All agents must then
	// have States implementing Owner.
	ValidateOwnership bool
	// Metrics, if set, is updated by the agents.
	Metrics *Metrics
	// Knobs are testing hooks.
	Knobs *TestingKnobs
}

// TestingKnobs hook into the scheduler for tests.
type TestingKnobs struct {
	// OnAdvance is called, with the monitor held, every time the turn counter
	// advances from the given value.
	OnAdvance func(from int64)
	// OnStep is called after every step of every agent, nested States
	// included.
	OnStep func(agent string, turn int64, outcome Outcome)
}

// Registry owns the agents of one scenario and the turn counter they
// share. It starts them, joins them, and tells them whether one of their
// peers terminated badly.
type Registry struct {
	cfg     Config
	counter *TurnCounter

	registered atomic.Bool
	// agents and byName are written once by Register.
	agents []*Agent
	byName map[string]*Agent

	stopping atomic.Bool
	mu       struct {
		syncutil.Mutex
		cancel context.CancelFunc
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	r := &Registry{
		cfg:     cfg,
		counter: NewTurnCounter(),
	}
	if cfg.Knobs != nil {
		r.counter.onAdvance = cfg.Knobs.OnAdvance
	}
	return r
}

// Register sets the agents of the scenario. It can only succeed once; a
// rejected call leaves the registry empty, and can be retried.
func (r *Registry) Register(agents ...*Agent) error {
	if r.registered.Load() {
		return errors.New("agents already registered")
	}
	byName := make(map[string]*Agent, len(agents))
	for _, a := range agents {
		if a.name == "" {
			return errors.New("agent without a name")
		}
		if _, ok := byName[a.name]; ok {
			return errors.Newf("duplicate agent name %q", a.name)
		}
		if a.driver != nil {
			return errors.Newf("agent %s is already registered", a.name)
		}
		byName[a.name] = a
	}
	if r.cfg.ValidateOwnership {
		if err := ValidateOwnership(agents); err != nil {
			return err
		}
	}
	if !r.registered.CompareAndSwap(false, true) {
		return errors.New("agents already registered")
	}
	for _, a := range agents {
		a.driver = &Driver{
			agent:       a.name,
			counter:     r.counter,
			waitTimeout: r.cfg.WaitTimeout,
			peerFailed:  r.AnyTerminatedBadly,
			metrics:     r.cfg.Metrics,
			knobs:       r.cfg.Knobs,
			stalled:     log.Every(time.Second),
		}
		a.windingDown = r.stopping.Load
		a.onExit = r.agentExited
	}
	r.agents = append([]*Agent(nil), agents...)
	r.byName = byName
	return nil
}

func (r *Registry) agentExited(a *Agent) {
	if m := r.cfg.Metrics; m != nil {
		m.AgentsTerminated.WithLabelValues(a.Status().String()).Inc()
	}
	if a.Status() == StatusTerminatedBadly {
		// Wake the peers so that they notice without waiting out their
		// timeout.
		r.counter.Broadcast()
	}
}

// StartAll starts every agent. It does not block.
func (r *Registry) StartAll(ctx context.Context) error {
	if !r.registered.Load() {
		return errors.New("no agents registered")
	}
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.mu.cancel = cancel
	r.mu.Unlock()
	for _, a := range r.agents {
		if err := a.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// JoinAll blocks until every agent's goroutine has exited, joining them in
// registration order. If the context is done first, the remaining agents
// are not joined and the context's error is returned.
func (r *Registry) JoinAll(ctx context.Context) error {
	for _, a := range r.agents {
		select {
		case <-a.Done():
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "joining agent %s", a.name)
		}
	}
	return nil
}

// AnyTerminatedBadly returns whether some agent has exited without having
// terminated normally. Agents interrupted by Stop do not count.
func (r *Registry) AnyTerminatedBadly() bool {
	for _, a := range r.agents {
		if a.IsAlive() || !a.started.Load() {
			continue
		}
		if s := a.Status(); s != StatusTerminatedOk && s != StatusInterrupted {
			return true
		}
	}
	return false
}

// Get returns the agent with the given name.
func (r *Registry) Get(name string) (*Agent, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Agents returns the agents in registration order.
func (r *Registry) Agents() []*Agent {
	return r.agents
}

// Counter returns the turn counter shared by the agents.
func (r *Registry) Counter() *TurnCounter {
	return r.counter
}

// Stop winds the scenario down: every agent is canceled, and agents exiting
// because of it are classified as interrupted rather than badly terminated.
// Stop does not wait for the agents; use JoinAll.
func (r *Registry) Stop() {
	r.stopping.Store(true)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mu.cancel != nil {
		r.mu.cancel()
	}
}

// Run starts and joins every agent, and returns the combined errors of the
// agents that terminated badly.
func (r *Registry) Run(ctx context.Context) error {
	if err := r.StartAll(ctx); err != nil {
		return err
	}
	defer r.releaseContext()
	if err := r.JoinAll(ctx); err != nil {
		return err
	}
	return r.Err()
}

// releaseContext cancels the context of agents that have all exited.
func (r *Registry) releaseContext() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mu.cancel != nil {
		r.mu.cancel()
	}
}

// Err returns the combined errors of the agents that terminated badly.
func (r *Registry) Err() error {
	var err error
	for _, a := range r.agents {
		if a.Status() == StatusTerminatedBadly {
			err = errors.CombineErrors(err, errors.Wrapf(a.Err(), "agent %s", a.name))
		}
	}
	return err
}
