// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import "github.com/cockroachdb/redact"

// Severity identifies the sort of log entry.
type Severity int32

const (
	SeverityUnknown Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityFatal
)

var severityNames = [...]string{
	SeverityUnknown: "UNKNOWN",
	SeverityInfo:    "INFO",
	SeverityWarning: "WARNING",
	SeverityError:   "ERROR",
	SeverityFatal:   "FATAL",
}

// String implements fmt.Stringer.
func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return severityNames[SeverityUnknown]
	}
	return severityNames[s]
}

// SafeValue implements redact.SafeValue.
func (Severity) SafeValue() {}

var _ redact.SafeValue = Severity(0)

// char returns the single-character prefix used in the entry header.
func (s Severity) char() byte {
	return s.String()[0]
}
