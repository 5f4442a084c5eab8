// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/interleave/pkg/testutils"
	"github.com/cockroachdb/interleave/pkg/util/leaktest"
	"github.com/cockroachdb/interleave/pkg/util/log"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := makeInterleaveCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

var increments = []string{"--txn", "R(A) W(A,A+1) C", "--txn", "R(A) W(A,A+1) C", "--verify", "R(A)"}

func TestCheckCommand(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	t.Setenv(dsnEnv, "")

	for _, store := range []string{storeSQLite, storeBadger} {
		t.Run(store, func(t *testing.T) {
			args := append([]string{"check", "--store", store}, increments...)
			out, err := execute(t, append(args, "--expect", "A=2")...)
			require.NoError(t, err, out)
			require.Equal(t, "check: 1 passed, 9 aborted, 0 failed\n", out)

			out, err = execute(t, append(args, "--expect", "A=3")...)
			require.True(t, testutils.IsError(err, "expected|matches none"), "%v", err)
			require.Contains(t, out, "R1(A) W1(A,A+1) C1 R2(A) W2(A,A+1) C2 [serializable serializable]\n")
			require.Contains(t, out, "  verify: R(A)[2]\n")
			require.Contains(t, out, "  check failed: final state A=2 matches none of: A=3\n")
			require.True(t, strings.HasSuffix(out, "check: 0 passed, 9 aborted, 1 failed\n"), out)
		})
	}
}

func TestCheckCommandErrors(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	t.Setenv(dsnEnv, "")

	_, err := execute(t, "check")
	require.ErrorContains(t, err, `required flag(s) "txn" not set`)

	_, err = execute(t, append([]string{"check", "--store", "oracle"}, increments...)...)
	require.ErrorContains(t, err, `unknown store "oracle"`)

	_, err = execute(t, append([]string{"check", "--isolation", "chaos"}, increments...)...)
	require.Error(t, err)

	_, err = execute(t, "check", "--txn", "R(A) X(A) C")
	require.ErrorContains(t, err, `failed to parse command "X(A)"`)
}

const scenariosYAML = `
scenarios:
  - name: lost update
    txns:
      - R(A) W(A,A+1) C
      - R(A) W(A,A+1) C
    verify: R(A)
    expect:
      - {A: 2}
  - name: write skew
    isolation: [serializable]
    pre: W(A,0) W(B,0)
    txns:
      - SC(A-C) W(A,A+B+1) C
      - SC(A-C) W(B,A+B+1) C
    verify: R(A) R(B)
    expect:
      - {A: 1, B: 2}
      - {A: 2, B: 1}
`

func TestRunCommand(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	t.Setenv(dsnEnv, "")

	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenariosYAML), 0644))

	out, err := execute(t, "run", path, "--store", storeBadger, "--parallel", "2")
	require.NoError(t, err, out)
	require.Equal(t, "lost update: 1 passed, 9 aborted, 0 failed\n"+
		"write skew: 2 passed, 18 aborted, 0 failed\n", out)
}

func TestLoadScenarios(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	scenarios, err := loadScenarios(strings.NewReader(scenariosYAML))
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	require.Equal(t, scenario{
		Name:      "write skew",
		Isolation: []string{"serializable"},
		Pre:       "W(A,0) W(B,0)",
		Txns:      []string{"SC(A-C) W(A,A+B+1) C", "SC(A-C) W(B,A+B+1) C"},
		Verify:    "R(A) R(B)",
		Expect:    []map[string]int64{{"A": 1, "B": 2}, {"A": 2, "B": 1}},
	}, scenarios[1])

	for _, tc := range []struct {
		yaml   string
		expErr string
	}{
		{`scenarios: []`, `no scenarios`},
		{"scenarios:\n  - txns: [C]", `scenario 1 has no name`},
		{"scenarios:\n  - name: a\n    txns: [C]\n  - name: a\n    txns: [C]", `duplicate scenario "a"`},
		{"scenarios:\n  - name: a", `scenario "a" has no transactions`},
		{"scenarios:\n  - name: a\n    txn: [C]", `field txn not found`},
	} {
		_, err := loadScenarios(strings.NewReader(tc.yaml))
		require.True(t, testutils.IsError(err, tc.expErr), "%s: %v", tc.yaml, err)
	}
}

func TestExpectAny(t *testing.T) {
	defer leaktest.AfterTest(t)()

	require.NoError(t, expectAny(nil)(map[string]int64{"A": 5}))
	check := expectAny([]map[string]int64{{"A": 1, "B": 2}, {"A": 2}})
	require.NoError(t, check(map[string]int64{"A": 1, "B": 2}))
	require.NoError(t, check(map[string]int64{"A": 2, "B": 7}))
	require.EqualError(t, check(map[string]int64{"B": 2, "A": 3}),
		"final state A=3 B=2 matches none of: A=1 B=2; A=2")
}

func TestStoreFactory(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	ctx := context.Background()

	f, err := newStoreFactory(ctx, storeConfig{kind: storeSQLite, dsn: filepath.Join(t.TempDir(), "shared.db")})
	require.NoError(t, err)
	require.False(t, f.parallelSafe())
	s1, release1, err := f.open(ctx)
	require.NoError(t, err)
	s2, release2, err := f.open(ctx)
	require.NoError(t, err)
	require.NotEqual(t, s1, s2)
	require.NoError(t, release1())
	require.NoError(t, release2())
	f.close(ctx)

	f, err = newStoreFactory(ctx, storeConfig{kind: storeSQLite})
	require.NoError(t, err)
	require.True(t, f.parallelSafe())
	dir := f.tmpDir
	_, release, err := f.open(ctx)
	require.NoError(t, err)
	require.NoError(t, release())
	f.close(ctx)
	_, err = os.Stat(dir)
	require.True(t, os.IsNotExist(err))
}

func TestMetricsServer(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	g := defaultGlobalConfig()
	rc, stop, err := g.runnerConfig(context.Background())
	require.NoError(t, err)
	require.Nil(t, rc.Metrics)
	stop()

	g.metricsAddr = "127.0.0.1:0"
	rc, stop, err = g.runnerConfig(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rc.Metrics)
	require.Equal(t, g.waitTimeout, rc.WaitTimeout)
	stop()
}
