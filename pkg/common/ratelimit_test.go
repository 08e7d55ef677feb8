package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter_Unlimited(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	assert.Nil(t, rl)
	assert.NoError(t, rl.Wait(context.Background()))
	rl.UpdateLimits(5, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.Canceled)
}

func TestRateLimiter_Wait(t *testing.T) {
	rl := NewRateLimiter(1000, 1)
	require.NotNil(t, rl)

	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Wait(context.Background()))
	}

	rl.UpdateLimits(0.001, 1)
	assert.InDelta(t, 0.001, rl.Limit(), 1e-9)

	// Drain whatever token refilled before the limit changed; afterwards the
	// next event is far beyond the deadline.
	drain, cancelDrain := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelDrain()
	_ = rl.Wait(drain)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.Wait(ctx))
}
