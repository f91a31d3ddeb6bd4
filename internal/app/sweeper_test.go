package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (c *countingExpirer) ExpireOverdue(context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestSweepListings(t *testing.T) {
	for _, e := range []*countingExpirer{{}, {err: errors.New("db down")}} {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- sweepListings(ctx, e, 5*time.Millisecond) }()

		require.Eventually(t, func() bool { return e.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
		cancel()
		require.NoError(t, <-done)
	}
}
