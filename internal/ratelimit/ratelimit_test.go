package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitteredFirstCallIsImmediate(t *testing.T) {
	j := NewJittered(time.Hour, time.Hour)

	start := time.Now()
	require.NoError(t, j.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestJitteredEnforcesDelay(t *testing.T) {
	j := NewJittered(50*time.Millisecond, 50*time.Millisecond)

	require.NoError(t, j.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, j.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestJitteredHonorsContextCancellation(t *testing.T) {
	j := NewJittered(time.Hour, time.Hour)
	require.NoError(t, j.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := j.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestJitteredSwapsInvertedBounds(t *testing.T) {
	j := NewJittered(100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, j.minDelay, j.maxDelay)
}
