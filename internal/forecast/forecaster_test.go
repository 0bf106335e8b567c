package forecast_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverbyte/capacity-engine/internal/forecast"
	"github.com/riverbyte/capacity-engine/internal/trend"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

func newForecaster() *forecast.Forecaster {
	return forecast.New(forecast.Config{
		HorizonMinutes:       60,
		SampleInterval:       time.Minute,
		ScaleOutThresholdPct: 70.0,
		ScaleInThresholdPct:  30.0,
		RequestRatePerUnit:   100.0,
		SufficiencyWindow:    24,
	})
}

func cpuSet(value float64) *models.SampleSet {
	return &models.SampleSet{
		PoolID:    "pool-1",
		Timestamp: time.Now(),
		Samples: []models.MetricSample{
			{PoolID: "pool-1", Metric: models.MetricCPUUtilization, Value: value, Timestamp: time.Now()},
		},
	}
}

func rateSet(value float64) *models.SampleSet {
	return &models.SampleSet{
		PoolID:    "pool-1",
		Timestamp: time.Now(),
		Samples: []models.MetricSample{
			{PoolID: "pool-1", Metric: models.MetricRequestRate, Value: value, Timestamp: time.Now()},
		},
		Unavailable: []models.MetricName{models.MetricCPUUtilization},
	}
}

func history(values []float64) []models.MetricSample {
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

func fullEstimate(slope float64) trend.Estimate {
	return trend.Estimate{Slope: slope, Volatility: 0, Samples: 24}
}

func TestForecaster_NoData(t *testing.T) {
	f := newForecaster()

	fc, err := f.Forecast(nil, nil, trend.Estimate{}, 5)
	assert.Nil(t, fc)
	assert.ErrorIs(t, err, forecast.ErrInsufficientData)

	fc, err = f.Forecast(&models.SampleSet{PoolID: "pool-1"}, nil, trend.Estimate{}, 5)
	assert.Nil(t, fc)
	assert.ErrorIs(t, err, forecast.ErrInsufficientData)
}

func TestForecaster_PredictsFromSlope(t *testing.T) {
	f := newForecaster()

	// 50% now, rising 0.2%/min over a 60 minute horizon -> 62%.
	fc, err := f.Forecast(cpuSet(50), history([]float64{48, 49, 50}), fullEstimate(0.2), 5)
	require.NoError(t, err)
	assert.Equal(t, models.MetricCPUUtilization, fc.Metric)
	assert.InDelta(t, 50.0, fc.CurrentDemand, 0.0001)
	assert.InDelta(t, 62.0, fc.PredictedDemand, 0.0001)
	assert.Equal(t, "pool-1", fc.PoolID)
	assert.Equal(t, 60, fc.HorizonMinutes)
}

func TestForecaster_ClampsPrediction(t *testing.T) {
	f := newForecaster()

	fc, err := f.Forecast(cpuSet(90), nil, fullEstimate(5.0), 5)
	require.NoError(t, err)
	assert.Equal(t, 100.0, fc.PredictedDemand)

	fc, err = f.Forecast(cpuSet(10), nil, fullEstimate(-5.0), 5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fc.PredictedDemand)
}

func TestForecaster_RequestRateFallback(t *testing.T) {
	f := newForecaster()

	// 200 req/s over 4 units at 100 req/s per unit -> 50% demand.
	fc, err := f.Forecast(rateSet(200), nil, fullEstimate(0), 4)
	require.NoError(t, err)
	assert.Equal(t, models.MetricRequestRate, fc.Metric)
	assert.InDelta(t, 50.0, fc.CurrentDemand, 0.0001)
}

func TestForecaster_RequestRateSlopeIsNormalized(t *testing.T) {
	f := newForecaster()

	// The trend on the fallback metric is in req/s per sample. +2 req/s/min
	// from 200 req/s over 60 minutes is 320 req/s on 400 sustainable, i.e.
	// 80% -- not a percent-scale projection saturating at 100%.
	fc, err := f.Forecast(rateSet(200), nil, fullEstimate(2.0), 4)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, fc.CurrentDemand, 0.0001)
	assert.InDelta(t, 80.0, fc.PredictedDemand, 0.0001)
	assert.Equal(t, models.UrgencyMedium, fc.Urgency)
	assert.Equal(t, 6, fc.RecommendedCapacity)
}

func TestForecaster_RecommendedCapacity(t *testing.T) {
	f := newForecaster()

	tests := []struct {
		name     string
		demand   float64
		capacity int
		expected int
	}{
		{"heavy demand scales out 1.5x", 85, 4, 6},
		{"heavy demand rounds up", 75, 5, 8},
		{"light demand scales in to 0.8x", 20, 10, 8},
		{"scale-in never drops below one unit", 5, 1, 1},
		{"moderate demand holds", 50, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := f.Forecast(cpuSet(tt.demand), nil, fullEstimate(0), tt.capacity)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, fc.RecommendedCapacity)
		})
	}
}

func TestForecaster_Urgency(t *testing.T) {
	f := newForecaster()

	tests := []struct {
		demand   float64
		expected models.Urgency
	}{
		{95, models.UrgencyHigh},
		{70, models.UrgencyMedium},
		{40, models.UrgencyLow},
	}

	for _, tt := range tests {
		fc, err := f.Forecast(cpuSet(tt.demand), nil, fullEstimate(0), 5)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, fc.Urgency)
	}
}

func TestForecaster_ConfidenceDiscountedByCoverage(t *testing.T) {
	f := newForecaster()

	full, err := f.Forecast(cpuSet(50), nil, fullEstimate(0), 5)
	require.NoError(t, err)

	partial := &models.SampleSet{
		PoolID:    "pool-1",
		Timestamp: time.Now(),
		Samples: []models.MetricSample{
			{PoolID: "pool-1", Metric: models.MetricCPUUtilization, Value: 50, Timestamp: time.Now()},
		},
		Unavailable: []models.MetricName{
			models.MetricRequestRate,
			models.MetricP99Latency,
			models.MetricQueueDepth,
		},
	}
	degraded, err := f.Forecast(partial, nil, fullEstimate(0), 5)
	require.NoError(t, err)

	assert.Less(t, degraded.Confidence, full.Confidence)
	assert.InDelta(t, full.Confidence*0.25, degraded.Confidence, 0.0001)
}

func TestForecaster_ConfidencePenalizesVolatility(t *testing.T) {
	f := newForecaster()

	calm, err := f.Forecast(cpuSet(50), nil, trend.Estimate{Volatility: 2, Samples: 24}, 5)
	require.NoError(t, err)
	jumpy, err := f.Forecast(cpuSet(50), nil, trend.Estimate{Volatility: 45, Samples: 24}, 5)
	require.NoError(t, err)

	assert.Greater(t, calm.Confidence, jumpy.Confidence)
}

func TestClassifier_Spike(t *testing.T) {
	c := forecast.NewClassifier(forecast.ClassifierConfig{})

	// Calm baseline followed by a violent recent window.
	values := []float64{30, 31, 30, 32, 31, 30, 30, 95, 20, 90, 15, 85}
	assert.Equal(t, models.PatternSpike, c.Classify(history(values)))
}

func TestClassifier_SteadyDefault(t *testing.T) {
	c := forecast.NewClassifier(forecast.ClassifierConfig{})

	assert.Equal(t, models.PatternSteady, c.Classify(history([]float64{50, 51, 50, 52, 51})))
	assert.Equal(t, models.PatternSteady, c.Classify(nil))
}

func TestClassifier_Cyclical(t *testing.T) {
	c := forecast.NewClassifier(forecast.ClassifierConfig{})

	// Two identical low-amplitude cycles: halves correlate, recent window calm.
	cycle := []float64{40, 42, 45, 47, 45, 42, 40, 42, 45, 47, 45, 42}
	assert.Equal(t, models.PatternCyclical, c.Classify(history(cycle)))
}

// hourlyDays builds `days` consecutive days of hourly samples following the
// same smooth daily curve, starting at midnight of the given day.
func hourlyDays(start time.Time, days int) []models.MetricSample {
	samples := make([]models.MetricSample, 0, days*24)
	for d := 0; d < days; d++ {
		for h := 0; h < 24; h++ {
			at := start.Add(time.Duration(d*24+h) * time.Hour)
			samples = append(samples, models.MetricSample{
				Timestamp: at,
				PoolID:    "pool-1",
				Metric:    models.MetricCPUUtilization,
				Value:     50 + 10*math.Sin(2*math.Pi*float64(h)/24),
			})
		}
	}
	return samples
}

func TestClassifier_Seasonal(t *testing.T) {
	c := forecast.NewClassifier(forecast.ClassifierConfig{})

	// Two days repeating the same hourly curve: hour buckets correlate
	// day-over-day, and the adjacent-hour changes are too small for the
	// spike rule to fire first.
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, models.PatternSeasonal, c.Classify(hourlyDays(start, 2)))
}

func TestClassifier_SeasonalNeedsTwoDays(t *testing.T) {
	c := forecast.NewClassifier(forecast.ClassifierConfig{})

	// One day of the same curve has no previous day to correlate against;
	// its sine halves anti-correlate, so it falls through to steady.
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, models.PatternSteady, c.Classify(hourlyDays(start, 1)))
}

func TestClassifier_SeasonalDayBoundaryIsUTC(t *testing.T) {
	c := forecast.NewClassifier(forecast.ClassifierConfig{})

	// The day buckets are cut by truncating the latest timestamp to a
	// 24-hour epoch multiple, i.e. at UTC midnight regardless of the
	// samples' zone. A repeating curve in a +05:30 zone still splits into
	// two correlated days.
	kolkata := time.FixedZone("IST", 5*3600+1800)
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, kolkata)
	assert.Equal(t, models.PatternSeasonal, c.Classify(hourlyDays(start, 2)))
}
