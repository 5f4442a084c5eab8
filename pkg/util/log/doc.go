// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package log implements leveled, context-aware logging for the interleave
// tooling.
//
// Every entry is a single line:
//
//	I260118 15:04:05.000000 42 interleave/agent.go:117 [agent=A,turn=3] 12 waiting
//
// The fields are the severity character, the UTC timestamp, the id of the
// logging goroutine, the caller position, the logging tags carried by the
// context (see github.com/cockroachdb/logtags), a per-process entry counter
// and finally the message. Messages are formatted with
// github.com/cockroachdb/redact; when redactable output is enabled the
// sensitive parts of messages are enclosed in redaction markers, otherwise
// the markers are stripped.
//
// Tests should call
//
//	defer log.Scope(t).Close(t)
//
// at the beginning so that log output is captured and only surfaced when the
// test fails.
package log
