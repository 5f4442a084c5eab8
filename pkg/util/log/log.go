// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import "context"

// Infof logs to the INFO log.
// Arguments are handled in the manner of fmt.Printf.
func Infof(ctx context.Context, format string, args ...interface{}) {
	logging.output(makeEntry(ctx, SeverityInfo, 1, format, args))
}

// Info logs to the INFO log.
func Info(ctx context.Context, msg string) {
	logging.output(makeEntry(ctx, SeverityInfo, 1, "", []interface{}{msg}))
}

// InfofDepth logs to the INFO log, offsetting the caller's stack frame by
// 'depth'.
func InfofDepth(ctx context.Context, depth int, format string, args ...interface{}) {
	logging.output(makeEntry(ctx, SeverityInfo, depth+1, format, args))
}

// Warningf logs to the WARNING log.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	logging.output(makeEntry(ctx, SeverityWarning, 1, format, args))
}

// WarningfDepth logs to the WARNING log, offsetting the caller's stack frame
// by 'depth'.
func WarningfDepth(ctx context.Context, depth int, format string, args ...interface{}) {
	logging.output(makeEntry(ctx, SeverityWarning, depth+1, format, args))
}

// Errorf logs to the ERROR log.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	logging.output(makeEntry(ctx, SeverityError, 1, format, args))
}

// ErrorfDepth logs to the ERROR log, offsetting the caller's stack frame by
// 'depth'.
func ErrorfDepth(ctx context.Context, depth int, format string, args ...interface{}) {
	logging.output(makeEntry(ctx, SeverityError, depth+1, format, args))
}

// Fatalf logs to the FATAL log and then exits the process, unless an exit
// function was installed with SetExitFunc.
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	logging.output(makeEntry(ctx, SeverityFatal, 1, format, args))
}

// V returns true if the logging verbosity is set to the specified level or
// higher.
func V(level int32) bool {
	return logging.verbosity.Load() >= level
}

// SetVerbosity sets the global verbosity and returns the previous value.
func SetVerbosity(level int32) int32 {
	return logging.verbosity.Swap(level)
}

// VEventf logs to the INFO log when the verbosity is at least the given
// level.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if V(level) {
		logging.output(makeEntry(ctx, SeverityInfo, 1, format, args))
	}
}

// VEventfDepth is like VEventf, offsetting the caller's stack frame by
// 'depth'.
func VEventfDepth(ctx context.Context, depth int, level int32, format string, args ...interface{}) {
	if V(level) {
		logging.output(makeEntry(ctx, SeverityInfo, depth+1, format, args))
	}
}
