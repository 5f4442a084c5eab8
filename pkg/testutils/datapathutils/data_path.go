// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package datapathutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDataPath returns a path to an asset in the testdata directory of the
// package under test, joined with the given relative components.
func TestDataPath(t testing.TB, relative ...string) string {
	t.Helper()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Join(append([]string{cwd, "testdata"}, relative...)...)
}
