// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package timeutil

import "time"

// LogTimeFormat is the layout of timestamps in log lines.
const LogTimeFormat = "060102 15:04:05.000000"

// Now returns the current UTC time.
func Now() time.Time {
	return time.Now().UTC()
}

// Since returns the time elapsed since t. It is shorthand for
// Now().Sub(t) and keeps the monotonic reading of t.
func Since(t time.Time) time.Duration {
	return time.Since(t)
}
