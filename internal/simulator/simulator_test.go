package simulator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverbyte/capacity-engine/internal/executor"
	"github.com/riverbyte/capacity-engine/internal/simulator"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

func TestParsePattern(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"daily", "daily"},
		{"weekly", "weekly"},
		{"random", "random"},
		{"cyclical", "cyclical"},
		{"sine", "cyclical"},
		{"gradual_rise", "gradual_rise"},
		{"steady", "steady"},
		{"bogus", "steady"},
		{"", "steady"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, simulator.ParsePattern(tt.input).Name())
		})
	}
}

func TestDailyPattern_HourModifiers(t *testing.T) {
	// A Wednesday, to keep the weekday out of the picture.
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		hour int
		want float64
	}{
		{"morning peak", 10, 140},
		{"afternoon peak", 15, 130},
		{"evening", 18, 110},
		{"night trough", 3, 60},
		{"midday baseline", 13, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := day.Add(time.Duration(tt.hour) * time.Hour)
			assert.InDelta(t, tt.want, simulator.PatternDaily.Apply(at, 100), 0.001)
		})
	}
}

func TestWeeklyPattern_WeekendReduction(t *testing.T) {
	saturday := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	wednesday := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	assert.InDelta(t, 50, simulator.PatternWeekly.Apply(saturday, 100), 0.001)
	assert.InDelta(t, 140, simulator.PatternWeekly.Apply(wednesday, 100), 0.001)
}

func TestGradualRisePattern_CapsAtHalfAgain(t *testing.T) {
	p := simulator.ParsePattern("gradual_rise")

	assert.InDelta(t, 100, p.Apply(time.Now(), 100), 0.5)
	assert.InDelta(t, 150, p.Apply(time.Now().Add(time.Hour), 100), 0.5)
}

func TestSineWavePattern_StaysWithinAmplitude(t *testing.T) {
	p := &simulator.SineWavePattern{Period: 10 * time.Minute, Amplitude: 0.3}

	at := time.Now()
	for i := 0; i < 40; i++ {
		value := p.Apply(at, 100)
		assert.GreaterOrEqual(t, value, 70.0)
		assert.LessOrEqual(t, value, 130.0)
		at = at.Add(time.Minute)
	}
}

func TestPoolSim_ScalingOutLowersUtilization(t *testing.T) {
	pool := simulator.NewPoolSim("pool-a", simulator.PoolSimConfig{
		InitialCapacity: 2,
		BaseRequestRate: 150,
		RequestsPerUnit: 100,
		Variance:        0.01,
	})

	now := time.Now()
	samples := pool.Samples(models.MetricCPUUtilization, now, now)
	require.Len(t, samples, 1)
	assert.InDelta(t, 75, samples[0].Value, 2)

	pool.SetCapacity(4)
	samples = pool.Samples(models.MetricCPUUtilization, now, now)
	require.Len(t, samples, 1)
	assert.InDelta(t, 37.5, samples[0].Value, 2)
}

func TestPoolSim_QueueBuildsWhenSaturated(t *testing.T) {
	pool := simulator.NewPoolSim("pool-a", simulator.PoolSimConfig{
		InitialCapacity: 1,
		BaseRequestRate: 150,
		RequestsPerUnit: 100,
		Variance:        0.01,
	})

	now := time.Now()
	depth := pool.Samples(models.MetricQueueDepth, now, now)[0].Value
	assert.InDelta(t, 100, depth, 5)

	pool.SetCapacity(2)
	depth = pool.Samples(models.MetricQueueDepth, now, now)[0].Value
	assert.InDelta(t, 0, depth, 1)
}

func TestPoolSim_SpikeOverridesBaseLoad(t *testing.T) {
	pool := simulator.NewPoolSim("pool-a", simulator.PoolSimConfig{
		InitialCapacity: 3,
		BaseRequestRate: 150,
		RequestsPerUnit: 100,
		Variance:        0.01,
	})

	pool.InjectSpike(600, time.Minute, 0)

	now := time.Now()
	rate := pool.Samples(models.MetricRequestRate, now, now)[0].Value
	assert.InDelta(t, 600, rate, 15)
}

func TestPoolSim_SamplesOnePerMinute(t *testing.T) {
	pool := simulator.NewPoolSim("pool-a", simulator.PoolSimConfig{})

	until := time.Now().Truncate(time.Minute)
	since := until.Add(-10 * time.Minute)
	samples := pool.Samples(models.MetricRequestRate, since, until)

	assert.Len(t, samples, 11)
	for i := 1; i < len(samples); i++ {
		assert.Equal(t, time.Minute, samples[i].Timestamp.Sub(samples[i-1].Timestamp))
	}
}

func TestProvider_AppliesCapacityChanges(t *testing.T) {
	sim := simulator.New(simulator.Config{})
	sim.GetOrCreatePool("pool-a")
	provider := simulator.NewProvider(sim, 10)
	ctx := context.Background()

	result, err := provider.SetDesiredCapacity(ctx, "pool-a", 7)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, 7, result.NewCapacity)

	capacity, err := provider.GetCurrentCapacity(ctx, "pool-a")
	require.NoError(t, err)
	assert.Equal(t, 7, capacity)
}

func TestProvider_RateLimitsChanges(t *testing.T) {
	sim := simulator.New(simulator.Config{})
	sim.GetOrCreatePool("pool-a")
	provider := simulator.NewProvider(sim, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := provider.SetDesiredCapacity(ctx, "pool-a", 5+i)
		require.NoError(t, err)
		require.True(t, result.Accepted)
	}

	// Pushback, not an error: the pool keeps its last accepted capacity.
	result, err := provider.SetDesiredCapacity(ctx, "pool-a", 9)
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, "rate_limit_exceeded", result.RejectReason)
	assert.Equal(t, 6, result.NewCapacity)
}

func TestProvider_UnknownPool(t *testing.T) {
	provider := simulator.NewProvider(simulator.New(simulator.Config{}), 10)

	_, err := provider.GetCurrentCapacity(context.Background(), "ghost")
	assert.ErrorIs(t, err, executor.ErrPoolNotFound)

	_, err = provider.SetDesiredCapacity(context.Background(), "ghost", 3)
	assert.ErrorIs(t, err, executor.ErrPoolNotFound)
}
