// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package interleave

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ValidateOwnership checks that every turn from 0 up to the highest turn
// owned by any agent is owned by exactly one agent. Every agent's State must
// implement Owner.
//
// A scenario failing this check stalls at runtime: nobody advances an
// unowned turn, and two owners race for a shared one.
func ValidateOwnership(agents []*Agent) error {
	owners := make(map[int64][]string)
	maxTurn := int64(-1)
	for _, a := range agents {
		o, ok := a.state.(Owner)
		if !ok {
			return errors.Newf("agent %s: state %T does not declare its turns", a.name, a.state)
		}
		for _, t := range o.OwnedTurns() {
			if t < 0 {
				return errors.Newf("agent %s: negative turn %d", a.name, t)
			}
			owners[t] = append(owners[t], a.name)
			if t > maxTurn {
				maxTurn = t
			}
		}
	}
	var err error
	for t := int64(0); t <= maxTurn; t++ {
		switch names := owners[t]; len(names) {
		case 1:
		case 0:
			err = errors.CombineErrors(err, errors.Newf("turn %d has no owner", t))
		default:
			err = errors.CombineErrors(err,
				errors.Newf("turn %d is owned by %s", t, strings.Join(names, ", ")))
		}
	}
	return errors.Wrap(err, "invalid turn ownership")
}
