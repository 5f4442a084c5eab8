// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

/*
Package interleave implements a deterministic scheduler for concurrent
agents. It lets a test author write two or more concurrent workers, each of
which executes a sequence of operations at exact, pre-assigned points
relative to the others, so that race conditions and isolation anomalies can
be reproduced reliably.

All agents of a scenario share one TurnCounter. An agent is driven by a
State: at every turn the agent's Driver asks the State what to do with the
current turn value. The State either performs the action it owns for that
turn (after which the Driver advances the counter by one, waking every
waiting agent), waits for another agent to advance the counter, or
terminates.

	a := interleave.NewSteps().
		At(0, writeX).
		At(2, writeY)
	b := interleave.NewSteps().
		At(1, readAndRecord).
		At(3, readAndRecord)

	r := interleave.NewRegistry(interleave.Config{})
	if err := r.Register(
		interleave.NewAgent("alfa", a),
		interleave.NewAgent("bravo", b),
	); err != nil {
		return err
	}
	return r.Run(ctx)

Steps need not be contiguous. A contiguous range of an agent's turns may run
inside a single transaction: InTxn returns an Action that opens a
transaction through a TxnManager and drives a nested State with the same
Driver. The nested State terminates at the turn at which the transaction
should commit (see Steps.Until); returning an error marked with ErrRollback
(see Rollback) rolls the transaction back without failing the agent.

Waits are bounded. If an agent terminates badly, its peers notice within
one wait interval and exit instead of waiting for a turn that will never
come. A mapping in which some turn has no owner, or several owners, is a
programming error that manifests as a stall; Config.ValidateOwnership
detects it before the agents start.
*/
package interleave
