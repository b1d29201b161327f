package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/lifescore-engine/internal/monitoring"
)

func testLimiter(t *testing.T, config Config) *RateLimiter {
	t.Helper()
	client, err := NewRedisClient("", "", 0)
	require.NoError(t, err)
	return NewRateLimiter(client, config, monitoring.NewMetrics())
}

func TestFallbackAllowsWithinLimit(t *testing.T) {
	rl := testLimiter(t, DefaultConfig())

	result, err := rl.AllowIP(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 60, result.Limit)
}

func TestFallbackBlocksBurst(t *testing.T) {
	config := Config{IPLimitPerMin: 2, ComputeLimitPerHour: 1, BurstMultiplier: 1}
	rl := testLimiter(t, config)

	ctx := context.Background()
	blocked := false
	// Burst floor is 5, so it takes a few extra requests to exhaust.
	for i := 0; i < 20; i++ {
		result, err := rl.AllowIP(ctx, "10.0.0.2")
		require.NoError(t, err)
		if !result.Allowed {
			blocked = true
			break
		}
	}
	assert.True(t, blocked)
}

func TestComputeLimitIsPerSubject(t *testing.T) {
	config := Config{IPLimitPerMin: 60, ComputeLimitPerHour: 1, BurstMultiplier: 1}
	rl := testLimiter(t, config)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := rl.AllowCompute(ctx, "subject-1")
		require.NoError(t, err)
	}

	// A different subject has its own bucket.
	result, err := rl.AllowCompute(ctx, "subject-2")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestDisabledRedisReportsFallback(t *testing.T) {
	rl := testLimiter(t, DefaultConfig())

	stats := rl.GetStats()
	assert.Equal(t, false, stats["redis_enabled"])
}
