// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package testutils

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestIsError(t *testing.T) {
	require.True(t, IsError(nil, ""))
	require.False(t, IsError(nil, "boom"))
	require.False(t, IsError(errors.New("boom"), ""))
	require.True(t, IsError(errors.New("big boom"), "b.*m"))
	require.False(t, IsError(errors.New("boom"), "("))
	require.True(t, IsPError(errors.Wrap(errors.New("inner"), "outer"), "outer: inner"))
}

func TestSucceedsWithin(t *testing.T) {
	var n int
	SucceedsWithin(t, func() error {
		if n++; n < 3 {
			return errors.New("retry")
		}
		return nil
	}, 5*time.Second)
	require.Equal(t, 3, n)
	require.Error(t, SucceedsWithinError(func() error { return errors.New("no") }, 5*time.Millisecond))
}
