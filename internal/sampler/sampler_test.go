package sampler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverbyte/capacity-engine/internal/sampler"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

func newSampler(source sampler.MetricsSource, maxHistory int) *sampler.Sampler {
	return sampler.New(source, sampler.Config{
		MaxHistoryLen: maxHistory,
	})
}

func TestSampler_CollectsAllMetrics(t *testing.T) {
	source := sampler.NewMockSource(sampler.MockSourceConfig{BaseCPU: 60, Variance: 0.1})
	source.AddPool("pool-a")
	s := newSampler(source, 100)

	set, err := s.Sample(context.Background(), "pool-a")
	require.NoError(t, err)

	assert.Equal(t, "pool-a", set.PoolID)
	assert.Len(t, set.Samples, 4)
	assert.Empty(t, set.Unavailable)
	assert.InDelta(t, 1.0, set.Coverage(), 0.001)

	cpu, ok := set.Value(models.MetricCPUUtilization)
	require.True(t, ok)
	assert.InDelta(t, 60.0, cpu, 0.2)
}

func TestSampler_PartialFailureIsNotAnError(t *testing.T) {
	source := sampler.NewMockSource(sampler.MockSourceConfig{})
	source.AddPool("pool-a")
	source.SetMetricDown(models.MetricP99Latency, true)
	s := newSampler(source, 100)

	set, err := s.Sample(context.Background(), "pool-a")
	require.NoError(t, err)

	assert.Len(t, set.Samples, 3)
	assert.Equal(t, []models.MetricName{models.MetricP99Latency}, set.Unavailable)
	assert.False(t, set.IsUnavailable(models.MetricCPUUtilization))
	assert.True(t, set.IsUnavailable(models.MetricP99Latency))
	assert.InDelta(t, 0.75, set.Coverage(), 0.001)
}

func TestSampler_AllMetricsDownFailsTheSample(t *testing.T) {
	source := sampler.NewMockSource(sampler.MockSourceConfig{})
	source.AddPool("pool-a")
	source.SetShouldFail(true, nil)
	s := newSampler(source, 100)

	_, err := s.Sample(context.Background(), "pool-a")
	assert.ErrorIs(t, err, sampler.ErrSourceFailed)
}

func TestSampler_UnknownPool(t *testing.T) {
	source := sampler.NewMockSource(sampler.MockSourceConfig{})
	s := newSampler(source, 100)

	_, err := s.Sample(context.Background(), "ghost")
	assert.ErrorIs(t, err, sampler.ErrPoolNotFound)
}

func TestSampler_HistoryEvictsOldestByCount(t *testing.T) {
	source := sampler.NewMockSource(sampler.MockSourceConfig{})
	source.AddPool("pool-a")
	s := newSampler(source, 3)

	for i := 0; i < 5; i++ {
		_, err := s.Sample(context.Background(), "pool-a")
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	series := s.History("pool-a", models.MetricCPUUtilization)
	require.Len(t, series, 3)
	for i := 1; i < len(series); i++ {
		assert.False(t, series[i].Timestamp.Before(series[i-1].Timestamp))
	}
}

func TestSampler_ClearHistory(t *testing.T) {
	source := sampler.NewMockSource(sampler.MockSourceConfig{})
	source.AddPool("pool-a")
	source.AddPool("pool-b")
	s := newSampler(source, 100)

	_, err := s.Sample(context.Background(), "pool-a")
	require.NoError(t, err)
	_, err = s.Sample(context.Background(), "pool-b")
	require.NoError(t, err)

	s.ClearHistory("pool-a")

	assert.Empty(t, s.History("pool-a", models.MetricCPUUtilization))
	assert.NotEmpty(t, s.History("pool-b", models.MetricCPUUtilization))
}
