// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package testutils

import (
	"regexp"

	"github.com/cockroachdb/errors"
)

// IsError returns true if the error string matches the supplied regex.
// An empty regex is interpreted to mean that a nil error is expected.
func IsError(err error, re string) bool {
	if err == nil && re == "" {
		return true
	}
	if err == nil || re == "" {
		return false
	}
	matched, merr := regexp.MatchString(re, err.Error())
	if merr != nil {
		return false
	}
	return matched
}

// IsPError returns true if pErr's message matches the supplied regex, or if
// the regex is empty and pErr is nil. The full error chain, including
// wrapping prefixes and hints, is searched.
func IsPError(err error, re string) bool {
	if err == nil || re == "" {
		return IsError(err, re)
	}
	return IsError(errors.Newf("%+v", err), re)
}
