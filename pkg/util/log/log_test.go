// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/logtags"
	"github.com/stretchr/testify/require"
)

func TestEntryFormat(t *testing.T) {
	s := Scope(t)
	defer s.Close(t)

	ctx := logtags.AddTag(context.Background(), "agent", "A")
	ctx = logtags.AddTag(ctx, "turn", 3)
	Infof(ctx, "waiting for %s", "B")
	Warningf(context.Background(), "no tags")

	lines := strings.Split(strings.TrimSpace(s.Contents()), "\n")
	require.Len(t, lines, 2)
	require.Regexp(t,
		regexp.MustCompile(`^I\d{6} \d{2}:\d{2}:\d{2}\.\d{6} \d+ log/log_test\.go:\d+ \[agent=A,turn=3\] \d+ waiting for B$`),
		lines[0])
	require.Regexp(t,
		regexp.MustCompile(`^W\d{6} \d{2}:\d{2}:\d{2}\.\d{6} \d+ log/log_test\.go:\d+ \d+ no tags$`),
		lines[1])
}

func TestRedactableOutput(t *testing.T) {
	s := Scope(t)
	defer s.Close(t)
	defer SetRedactable(false)

	SetRedactable(true)
	Infof(context.Background(), "key %s", "secret")
	require.Contains(t, s.Contents(), "⋮ ")
	require.Contains(t, s.Contents(), "key ‹secret›")
}

func TestVerbosity(t *testing.T) {
	s := Scope(t)
	defer s.Close(t)

	prev := SetVerbosity(1)
	defer SetVerbosity(prev)
	require.True(t, V(1))
	require.False(t, V(2))

	VEventf(context.Background(), 2, "hidden")
	VEventf(context.Background(), 1, "shown")
	require.NotContains(t, s.Contents(), "hidden")
	require.Contains(t, s.Contents(), "shown")
}

func TestFatalExitOverride(t *testing.T) {
	s := Scope(t)
	defer s.Close(t)

	var code int
	SetExitFunc(func(c int) { code = c })
	defer ResetExitFunc()

	Fatalf(context.Background(), "boom")
	require.Equal(t, exitCodeFatal, code)
	require.Contains(t, s.Contents(), "boom")
	require.True(t, strings.HasPrefix(s.Contents(), "F"))
}

func TestEveryN(t *testing.T) {
	s := Scope(t)
	defer s.Close(t)

	start := time.Now()
	e := Every(time.Minute)
	require.True(t, e.shouldLog(start))
	require.False(t, e.shouldLog(start.Add(time.Second)))
	require.True(t, e.shouldLog(start.Add(2*time.Minute)))

	// High verbosity always logs.
	prev := SetVerbosity(2)
	defer SetVerbosity(prev)
	require.True(t, e.shouldLog(start.Add(2*time.Minute+time.Second)))
}
