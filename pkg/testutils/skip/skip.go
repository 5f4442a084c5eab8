// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package skip

import (
	"os"
	"testing"

	"github.com/cockroachdb/interleave/pkg/util"
)

// IgnoreLint skips this test, explicitly marking it as not a test that
// should be tracked as a "skipped test" by external tools.
func IgnoreLint(t testing.TB, args ...interface{}) {
	t.Helper()
	t.Skip(args...)
}

// UnderRace skips this test if the race detector is enabled.
func UnderRace(t testing.TB, args ...interface{}) {
	t.Helper()
	if util.RaceEnabled {
		t.Skip(append([]interface{}{"disabled under race"}, args...))
	}
}

// UnderShort skips this test if the -short flag is specified.
func UnderShort(t testing.TB, args ...interface{}) {
	t.Helper()
	if testing.Short() {
		t.Skip(append([]interface{}{"disabled under -short"}, args...))
	}
}

// UnlessEnv skips this test unless the named environment variable is set,
// and returns its value otherwise. Tests against external databases use it
// to pick up their connection string.
func UnlessEnv(t testing.TB, name string) string {
	t.Helper()
	v := os.Getenv(name)
	if v == "" {
		t.Skipf("%s not set", name)
	}
	return v
}
