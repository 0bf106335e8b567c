package trend_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/riverbyte/capacity-engine/internal/trend"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

func samplesFromValues(values []float64) []models.MetricSample {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	samples := make([]models.MetricSample, len(values))
	for i, v := range values {
		samples[i] = models.MetricSample{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			PoolID:    "pool-1",
			Metric:    models.MetricCPUUtilization,
			Value:     v,
		}
	}
	return samples
}

func TestSlope(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"rising line", []float64{10, 20, 30, 40}, 10.0},
		{"falling line", []float64{40, 30, 20, 10}, -10.0},
		{"flat line", []float64{25, 25, 25, 25}, 0.0},
		{"single value", []float64{42}, 0.0},
		{"empty", nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, trend.Slope(tt.values), 0.0001)
		})
	}
}

func TestStdDev(t *testing.T) {
	assert.InDelta(t, 0.0, trend.StdDev([]float64{5, 5, 5}), 0.0001)
	assert.InDelta(t, 2.0, trend.StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 0.0001)
	assert.Equal(t, 0.0, trend.StdDev([]float64{1}))
}

func TestCorrelation(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"perfect positive", []float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}, 1.0},
		{"perfect negative", []float64{1, 2, 3, 4}, []float64{8, 6, 4, 2}, -1.0},
		{"degenerate series", []float64{5, 5, 5}, []float64{1, 2, 3}, 0.0},
		{"length mismatch", []float64{1, 2}, []float64{1, 2, 3}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, trend.Correlation(tt.a, tt.b), 0.0001)
		})
	}
}

func TestEstimator_Estimate(t *testing.T) {
	estimator := trend.NewEstimator(5)

	t.Run("too few samples yields zero estimate", func(t *testing.T) {
		est := estimator.Estimate(samplesFromValues([]float64{50}))
		assert.Equal(t, 0.0, est.Slope)
		assert.Equal(t, 0.0, est.Volatility)
		assert.Equal(t, 1, est.Samples)
	})

	t.Run("rising history has positive slope", func(t *testing.T) {
		est := estimator.Estimate(samplesFromValues([]float64{10, 20, 30, 40, 50}))
		assert.InDelta(t, 10.0, est.Slope, 0.0001)
		assert.Equal(t, 5, est.Samples)
	})

	t.Run("only most recent window is used", func(t *testing.T) {
		// Old noise followed by a clean rise within the window.
		values := []float64{90, 5, 77, 10, 20, 30, 40, 50}
		est := estimator.Estimate(samplesFromValues(values))
		assert.Equal(t, 5, est.Samples)
		assert.InDelta(t, 10.0, est.Slope, 0.0001)
	})

	t.Run("volatile history reports volatility", func(t *testing.T) {
		est := estimator.Estimate(samplesFromValues([]float64{10, 90, 10, 90, 10}))
		assert.Greater(t, est.Volatility, 30.0)
	})
}

func TestEstimator_DefaultWindow(t *testing.T) {
	estimator := trend.NewEstimator(0)
	assert.Equal(t, 24, estimator.WindowSize())
}
