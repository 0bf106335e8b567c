package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riverbyte/capacity-engine/pkg/models"
)

func TestScalingDecision_DeltaAndDirection(t *testing.T) {
	out := &models.ScalingDecision{CurrentCapacity: 4, TargetCapacity: 10}
	assert.Equal(t, 6, out.Delta())
	assert.Equal(t, models.DirectionScaleOut, out.Direction())

	in := &models.ScalingDecision{CurrentCapacity: 10, TargetCapacity: 4}
	assert.Equal(t, -6, in.Delta())
	assert.Equal(t, models.DirectionScaleIn, in.Direction())
}

func TestExecutionState_IsTerminal(t *testing.T) {
	terminal := []models.ExecutionState{
		models.StateCompleted, models.StateFailed, models.StateCancelled, models.StateExpired,
	}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), string(s))
	}

	live := []models.ExecutionState{
		models.StatePending, models.StateInProgress, models.StateBlocked,
	}
	for _, s := range live {
		assert.False(t, s.IsTerminal(), string(s))
	}
}

func TestExecution_AppliedDeltaAndRemainingSteps(t *testing.T) {
	exec := &models.Execution{
		Steps: []*models.ExecutionStep{
			{Delta: 3, Result: models.StepApplied},
			{Delta: 3, Result: models.StepApplied},
			{Delta: 1, Result: models.StepPending},
		},
	}

	assert.Equal(t, 6, exec.AppliedDelta())
	assert.Equal(t, 1, exec.RemainingSteps())
}

func TestAccommodation_IsNone(t *testing.T) {
	var nilAccommodation *models.Accommodation
	assert.True(t, nilAccommodation.IsNone())
	assert.True(t, (&models.Accommodation{Type: models.AccommodationNone}).IsNone())
	assert.False(t, (&models.Accommodation{Type: models.AccommodationMultiPoolSplit}).IsNone())
}

func TestMetricRange_Clamp(t *testing.T) {
	r := models.RangeFor(models.MetricCPUUtilization)
	assert.Equal(t, 0.0, r.Clamp(-5))
	assert.Equal(t, 100.0, r.Clamp(140))
	assert.Equal(t, 62.5, r.Clamp(62.5))
}

func TestSampleSet_ValueAndCoverage(t *testing.T) {
	set := &models.SampleSet{
		Samples: []models.MetricSample{
			{Metric: models.MetricCPUUtilization, Value: 73},
			{Metric: models.MetricRequestRate, Value: 410},
		},
		Unavailable: []models.MetricName{models.MetricP99Latency, models.MetricQueueDepth},
	}

	value, ok := set.Value(models.MetricCPUUtilization)
	assert.True(t, ok)
	assert.Equal(t, 73.0, value)

	_, ok = set.Value(models.MetricP99Latency)
	assert.False(t, ok)
	assert.True(t, set.IsUnavailable(models.MetricP99Latency))

	assert.InDelta(t, 0.5, set.Coverage(), 0.001)
	assert.False(t, set.IsEmpty())

	empty := &models.SampleSet{}
	assert.True(t, empty.IsEmpty())
	assert.Zero(t, empty.Coverage())
}
