// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"bytes"
	"io"
	"os"
	"strconv"

	"github.com/cockroachdb/interleave/pkg/util/syncutil"
)

// tShim is the subset of testing.TB used by TestLogScope.
type tShim interface {
	Helper()
	Failed() bool
	Logf(format string, args ...interface{})
}

// TestLogScope captures log output for the duration of a test.
type TestLogScope struct {
	buf           *lockedBuffer
	prevOut       io.Writer
	prevVerbosity int32
}

type lockedBuffer struct {
	mu  syncutil.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Scope redirects log output into an in-memory buffer until Close is
// called. The buffered entries are surfaced through t.Logf if the test
// failed. The environment variable INTERLEAVE_TEST_VERBOSITY raises the
// logging verbosity for the scope.
func Scope(t tShim) *TestLogScope {
	t.Helper()
	s := &TestLogScope{buf: &lockedBuffer{}}
	s.prevOut = logging.swapOutput(s.buf)
	level := int32(0)
	if v, err := strconv.Atoi(os.Getenv("INTERLEAVE_TEST_VERBOSITY")); err == nil {
		level = int32(v)
	}
	s.prevVerbosity = SetVerbosity(level)
	return s
}

// Contents returns the log entries captured so far.
func (s *TestLogScope) Contents() string {
	return s.buf.String()
}

// Close restores the previous log output.
func (s *TestLogScope) Close(t tShim) {
	t.Helper()
	logging.swapOutput(s.prevOut)
	SetVerbosity(s.prevVerbosity)
	if t.Failed() {
		if out := s.buf.String(); out != "" {
			t.Logf("log output:\n%s", out)
		}
	}
}
