package decision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverbyte/capacity-engine/internal/decision"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

func testPool() *models.ResourcePool {
	return &models.ResourcePool{
		ID:           "pool-a",
		Name:         "web-frontend",
		ResourceType: "compute",
		MinCapacity:  2,
		MaxCapacity:  20,
		Status:       models.PoolStatusActive,
	}
}

func testForecast(urgency models.Urgency, pattern models.DemandPattern, confidence float64) *models.DemandForecast {
	fc := models.NewDemandForecast("pool-a", models.MetricCPUUtilization)
	fc.CurrentDemand = 60
	fc.PredictedDemand = 85
	fc.Urgency = urgency
	fc.Pattern = pattern
	fc.Confidence = confidence
	fc.RecommendedCapacity = 9
	return fc
}

func passthrough(capacity int) *models.Resolution {
	return &models.Resolution{
		ResourceType:      "compute",
		RequestedCapacity: capacity,
		FeasibleCapacity:  capacity,
		Accommodation:     &models.Accommodation{Type: models.AccommodationNone},
	}
}

func TestMaker_NilForecast(t *testing.T) {
	m := decision.NewMaker(decision.Config{})
	assert.Nil(t, m.Decide(testPool(), nil, nil, 5))
}

func TestMaker_HoldWhenTargetMatchesCurrent(t *testing.T) {
	m := decision.NewMaker(decision.Config{})

	fc := testForecast(models.UrgencyLow, models.PatternSteady, 0.5)
	d := m.Decide(testPool(), fc, passthrough(6), 6)
	assert.Nil(t, d)

	// Running the same unchanged cycle again still produces nothing.
	d = m.Decide(testPool(), fc, passthrough(6), 6)
	assert.Nil(t, d)
}

func TestMaker_ClampsToPoolBounds(t *testing.T) {
	m := decision.NewMaker(decision.Config{})
	pool := testPool()

	d := m.Decide(pool, testForecast(models.UrgencyLow, models.PatternSteady, 0.5), passthrough(50), 5)
	require.NotNil(t, d)
	assert.Equal(t, 20, d.TargetCapacity)

	d = m.Decide(pool, testForecast(models.UrgencyLow, models.PatternSteady, 0.5), passthrough(1), 5)
	require.NotNil(t, d)
	assert.Equal(t, 2, d.TargetCapacity)
}

func TestMaker_StrategySelection(t *testing.T) {
	m := decision.NewMaker(decision.Config{ConfidenceThreshold: 0.8})

	tests := []struct {
		name       string
		urgency    models.Urgency
		pattern    models.DemandPattern
		confidence float64
		expected   models.Strategy
	}{
		{"high urgency wins regardless of pattern", models.UrgencyHigh, models.PatternSeasonal, 0.95, models.StrategyReactive},
		{"seasonal pattern schedules", models.UrgencyMedium, models.PatternSeasonal, 0.95, models.StrategyScheduled},
		{"high confidence predicts", models.UrgencyLow, models.PatternSteady, 0.9, models.StrategyPredictive},
		{"threshold confidence is not enough", models.UrgencyLow, models.PatternSteady, 0.8, models.StrategyHybrid},
		{"everything else is hybrid", models.UrgencyLow, models.PatternSpike, 0.4, models.StrategyHybrid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := testForecast(tt.urgency, tt.pattern, tt.confidence)
			d := m.Decide(testPool(), fc, passthrough(9), 5)
			require.NotNil(t, d)
			assert.Equal(t, tt.expected, d.Strategy)
		})
	}
}

func TestMaker_MultiPoolSplitUsesOwnShare(t *testing.T) {
	m := decision.NewMaker(decision.Config{})

	res := &models.Resolution{
		ResourceType:      "compute",
		RequestedCapacity: 30,
		FeasibleCapacity:  30,
		Accommodation: &models.Accommodation{
			Type: models.AccommodationMultiPoolSplit,
			Splits: []models.PoolSplit{
				{PoolID: "pool-a", Capacity: 18},
				{PoolID: "pool-b", Capacity: 12},
			},
		},
	}

	d := m.Decide(testPool(), testForecast(models.UrgencyMedium, models.PatternSteady, 0.5), res, 5)
	require.NotNil(t, d)
	assert.Equal(t, 18, d.TargetCapacity)
	require.NotNil(t, d.Accommodation)
	assert.Len(t, d.Accommodation.Splits, 2)
}

func TestMaker_StepsAndReason(t *testing.T) {
	m := decision.NewMaker(decision.Config{MaxChangePerStep: 3})

	d := m.Decide(testPool(), testForecast(models.UrgencyMedium, models.PatternSteady, 0.5), passthrough(12), 5)
	require.NotNil(t, d)
	assert.Equal(t, 3, d.EstimatedSteps) // delta 7 at 3 per step
	assert.Equal(t, "predicted_demand_steady", d.Reason)
	assert.Equal(t, models.DirectionScaleOut, d.Direction())

	fc := testForecast(models.UrgencyLow, models.PatternCyclical, 0.5)
	fc.PredictedDemand = 20
	d = m.Decide(testPool(), fc, passthrough(3), 5)
	require.NotNil(t, d)
	assert.Equal(t, "demand_receding_cyclical", d.Reason)
	assert.Equal(t, models.DirectionScaleIn, d.Direction())
	assert.Equal(t, 1, d.EstimatedSteps)
}
