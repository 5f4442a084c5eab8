// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/interleave/pkg/util/syncutil"
	"github.com/cockroachdb/interleave/pkg/util/timeutil"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
	"github.com/petermattis/goid"
)

// exitCodeFatal is the process exit code used after a Fatal entry.
const exitCodeFatal = 7

type loggingT struct {
	verbosity    atomic.Int32
	redactable   atomic.Bool
	entryCounter atomic.Uint64

	mu struct {
		syncutil.Mutex
		out          io.Writer
		exitOverride func(int)
	}
}

var logging = func() *loggingT {
	l := &loggingT{}
	l.mu.out = os.Stderr
	return l
}()

// logEntry is a single, fully resolved log entry.
type logEntry struct {
	sev     Severity
	time    time.Time
	goid    int64
	file    string
	line    int
	counter uint64
	tags    redact.RedactableString
	msg     redact.RedactableString
}

func makeEntry(
	ctx context.Context, sev Severity, depth int, format string, args []interface{},
) logEntry {
	e := logEntry{
		sev:     sev,
		time:    timeutil.Now(),
		goid:    goid.Get(),
		counter: logging.entryCounter.Add(1),
		tags:    renderTags(ctx),
	}
	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		e.file, e.line = shortFile(file), line
	} else {
		e.file, e.line = "???", 1
	}
	if format == "" {
		e.msg = redact.Sprint(args...)
	} else {
		e.msg = redact.Sprintf(format, args...)
	}
	return e
}

// shortFile trims a source path down to its last directory and file name.
func shortFile(file string) string {
	if i := strings.LastIndexByte(file, '/'); i >= 0 {
		if j := strings.LastIndexByte(file[:i], '/'); j >= 0 {
			return file[j+1:]
		}
	}
	return file
}

func renderTags(ctx context.Context) redact.RedactableString {
	tags := logtags.FromContext(ctx)
	if tags == nil {
		return ""
	}
	var b redact.StringBuilder
	for i, t := range tags.Get() {
		if i > 0 {
			b.SafeRune(',')
		}
		b.SafeString(redact.SafeString(t.Key()))
		if v := t.Value(); v != nil {
			b.SafeRune('=')
			b.Print(v)
		}
	}
	return b.RedactableString()
}

// format renders the entry as a single newline-terminated line.
func (e logEntry) format(redactable bool) []byte {
	var buf strings.Builder
	buf.WriteByte(e.sev.char())
	buf.WriteString(e.time.Format(timeutil.LogTimeFormat))
	fmt.Fprintf(&buf, " %d %s:%d ", e.goid, e.file, e.line)
	if redactable {
		buf.WriteString("⋮ ")
	}
	if e.tags != "" {
		buf.WriteByte('[')
		buf.WriteString(strip(e.tags, redactable))
		buf.WriteString("] ")
	}
	fmt.Fprintf(&buf, "%d ", e.counter)
	buf.WriteString(strings.TrimRight(strip(e.msg, redactable), "\n"))
	buf.WriteByte('\n')
	return []byte(buf.String())
}

func strip(s redact.RedactableString, redactable bool) string {
	if redactable {
		return string(s)
	}
	return s.StripMarkers()
}

func (l *loggingT) output(e logEntry) {
	line := e.format(l.redactable.Load())
	l.mu.Lock()
	defer l.mu.Unlock()
	// Errors writing logs have nowhere to go.
	_, _ = l.mu.out.Write(line)
	if e.sev == SeverityFatal {
		exit := l.mu.exitOverride
		if exit == nil {
			exit = os.Exit
		}
		exit(exitCodeFatal)
	}
}

// swapOutput installs w as the log sink and returns the previous one.
func (l *loggingT) swapOutput(w io.Writer) io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.mu.out
	l.mu.out = w
	return prev
}

// SetRedactable configures whether entries keep their redaction markers.
func SetRedactable(redactable bool) {
	logging.redactable.Store(redactable)
}

// SetExitFunc allows setting a function that will be called to exit the
// process when a Fatal message is generated. Call with a nil function to
// undo.
func SetExitFunc(f func(int)) {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	logging.mu.exitOverride = f
}

// ResetExitFunc undoes any prior call to SetExitFunc.
func ResetExitFunc() {
	SetExitFunc(nil)
}
