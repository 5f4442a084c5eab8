// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package history

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Cmd is a command of a transaction history.
type Cmd struct {
	// Name is one of R, I, D, DR, SC, W, C or A.
	Name string
	// Key is the key of the command, if any.
	Key string
	// EndKey is the end of the range for DR and SC, and the "+"-separated
	// summands for W.
	EndKey string
	// Txn is the 0-based index of the command's transaction.
	Txn int

	fn cmdFn
}

// String renders the command the way it is written in a collated history.
// Commands that belong to no transaction, such as those of a verification
// history, are rendered without an index.
func (c *Cmd) String() string {
	var idx string
	if c.Txn >= 0 {
		idx = strconv.Itoa(c.Txn + 1)
	}
	if c.Key != "" && c.EndKey != "" {
		if c.Name == "W" {
			return fmt.Sprintf("%s%s(%s,%s)", c.Name, idx, c.Key, c.EndKey)
		}
		return fmt.Sprintf("%s%s(%s-%s)", c.Name, idx, c.Key, c.EndKey)
	}
	if c.Key != "" {
		return fmt.Sprintf("%s%s(%s)", c.Name, idx, c.Key)
	}
	return c.Name + idx
}

// ends reports whether the command ends its transaction.
func (c *Cmd) ends() bool {
	return c.Name == "C" || c.Name == "A"
}

// String renders a collated history.
func String(cmds []*Cmd) string {
	strs := make([]string, len(cmds))
	for i, c := range cmds {
		strs[i] = c.String()
	}
	return strings.Join(strs, " ")
}

type cmdSpec struct {
	fn cmdFn
	re *regexp.Regexp
}

// The optional second group is the transaction index of collated histories.
var cmdSpecs = []*cmdSpec{
	{readCmd, regexp.MustCompile(`^(R)(\d*)\(([A-Z]+)\)$`)},
	{incCmd, regexp.MustCompile(`^(I)(\d*)\(([A-Z]+)\)$`)},
	{deleteCmd, regexp.MustCompile(`^(D)(\d*)\(([A-Z]+)\)$`)},
	{deleteRngCmd, regexp.MustCompile(`^(DR)(\d*)\(([A-Z]+)-([A-Z]+)\)$`)},
	{scanCmd, regexp.MustCompile(`^(SC)(\d*)\(([A-Z]+)-([A-Z]+)\)$`)},
	{writeCmd, regexp.MustCompile(`^(W)(\d*)\(([A-Z]+),([A-Z0-9+]+)\)$`)},
	{commitCmd, regexp.MustCompile(`^(C)(\d*)$`)},
	{abortCmd, regexp.MustCompile(`^(A)(\d*)$`)},
}

// parseCmd parses one command. If collated is set, the command must carry
// its transaction index; otherwise it must not, and txn is used.
func parseCmd(elem string, txn int, collated bool) (*Cmd, error) {
	for _, spec := range cmdSpecs {
		match := spec.re.FindStringSubmatch(elem)
		if match == nil {
			continue
		}
		c := &Cmd{Name: match[1], Txn: txn, fn: spec.fn}
		if len(match) > 3 {
			c.Key = match[3]
		}
		if len(match) > 4 {
			c.EndKey = match[4]
		}
		switch idx := match[2]; {
		case collated && idx == "":
			return nil, errors.Newf("command %q lacks a transaction index", elem)
		case !collated && idx != "":
			return nil, errors.Newf("command %q has a transaction index", elem)
		case collated:
			n, err := strconv.Atoi(idx)
			if err != nil || n < 1 {
				return nil, errors.Newf("command %q has an invalid transaction index", elem)
			}
			c.Txn = n - 1
		}
		return c, nil
	}
	return nil, errors.Newf("failed to parse command %q", elem)
}

// ParseTxn parses the history of a single transaction, such as
// "R(A) W(A,A+1) C". A negative txn parses commands that belong to no
// transaction.
func ParseTxn(txn int, history string) ([]*Cmd, error) {
	var cmds []*Cmd
	for _, elem := range strings.Fields(history) {
		c, err := parseCmd(elem, txn, false /* collated */)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}

// ParseTxns parses the histories of several transactions, the i-th of
// which gets index i.
func ParseTxns(histories []string) ([][]*Cmd, error) {
	var results [][]*Cmd
	for i, history := range histories {
		cmds, err := ParseTxn(i, history)
		if err != nil {
			return nil, errors.Wrapf(err, "txn %d", i+1)
		}
		results = append(results, cmds)
	}
	return results, nil
}

// ParseCollated parses a collated history, such as "R1(A) R2(A) C1 C2".
// Transaction indexes must be dense: a history using index 3 must also use
// indexes 1 and 2.
func ParseCollated(history string) ([]*Cmd, error) {
	var cmds []*Cmd
	numTxns := 0
	for _, elem := range strings.Fields(history) {
		c, err := parseCmd(elem, 0, true /* collated */)
		if err != nil {
			return nil, err
		}
		if c.Txn >= numTxns {
			numTxns = c.Txn + 1
		}
		cmds = append(cmds, c)
	}
	if len(Split(cmds)) != numTxns {
		return nil, errors.Newf("history %q skips a transaction index", history)
	}
	return cmds, nil
}

// Split returns the commands of each transaction of a collated history, in
// history order.
func Split(cmds []*Cmd) [][]*Cmd {
	var txns [][]*Cmd
	for _, c := range cmds {
		for len(txns) <= c.Txn {
			txns = append(txns, nil)
		}
		txns[c.Txn] = append(txns[c.Txn], c)
	}
	var res [][]*Cmd
	for _, txn := range txns {
		if len(txn) > 0 {
			res = append(res, txn)
		}
	}
	return res
}

// validateTxn checks that a transaction ends with its only commit or
// abort.
func validateTxn(cmds []*Cmd) error {
	if len(cmds) == 0 {
		return errors.New("empty transaction")
	}
	for i, c := range cmds {
		last := i == len(cmds)-1
		if c.ends() && !last {
			return errors.Newf("txn %d: %s is not its last command", c.Txn+1, c)
		}
		if !c.ends() && last {
			return errors.Newf("txn %d: does not end with C or A", c.Txn+1)
		}
	}
	return nil
}
