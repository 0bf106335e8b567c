package decision

import (
	"time"

	"github.com/riverbyte/capacity-engine/internal/logger"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

type Config struct {
	MaxChangePerStep    int
	ConfidenceThreshold float64
}

// Maker turns a forecast plus its constraint resolution into a scaling
// decision, or into nothing at all when no change is needed.
type Maker struct {
	config Config
}

func NewMaker(cfg Config) *Maker {
	if cfg.MaxChangePerStep <= 0 {
		cfg.MaxChangePerStep = 3
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = 0.8
	}
	return &Maker{config: cfg}
}

// Decide returns nil when the recommended capacity equals the current one.
// A no-op is a valid, expected outcome of a healthy cycle, not an error
// and not a degenerate decision; running an unchanged cycle twice must not
// produce two decisions.
func (m *Maker) Decide(
	pool *models.ResourcePool,
	forecast *models.DemandForecast,
	resolution *models.Resolution,
	currentCapacity int,
) *models.ScalingDecision {
	if forecast == nil {
		return nil
	}

	target := currentCapacity
	var accommodation *models.Accommodation

	if resolution != nil {
		target = resolution.FeasibleCapacity
		if !resolution.Accommodation.IsNone() {
			accommodation = resolution.Accommodation
		}
		// With a multi-pool split this pool only takes its own share;
		// the rest of the plan rides along in the accommodation.
		if accommodation != nil && accommodation.Type == models.AccommodationMultiPoolSplit {
			for _, split := range accommodation.Splits {
				if split.PoolID == pool.ID {
					target = split.Capacity
					break
				}
			}
		}
	}

	target = clamp(target, pool.MinCapacity, pool.MaxCapacity)

	if target == currentCapacity {
		logger.WithPool(pool.ID).Debug("Decision: hold (recommendation matches current capacity)")
		return nil
	}

	d := &models.ScalingDecision{
		DecisionID:      models.NewUUID(),
		PoolID:          pool.ID,
		CurrentCapacity: currentCapacity,
		TargetCapacity:  target,
		Strategy:        m.selectStrategy(forecast),
		Urgency:         forecast.Urgency,
		Accommodation:   accommodation,
		EstimatedSteps:  estimateSteps(target-currentCapacity, m.config.MaxChangePerStep),
		Reason:          reasonFor(forecast),
		ForecastID:      forecast.ForecastID,
		CreatedAt:       time.Now(),
	}

	logger.WithPool(pool.ID).Infof(
		"Decision: %s %d -> %d (strategy=%s, urgency=%s, steps=%d)",
		d.Direction(), d.CurrentCapacity, d.TargetCapacity, d.Strategy, d.Urgency, d.EstimatedSteps,
	)

	return d
}

// selectStrategy order matters: urgency overrides pattern, pattern
// overrides confidence.
func (m *Maker) selectStrategy(forecast *models.DemandForecast) models.Strategy {
	switch {
	case forecast.Urgency == models.UrgencyHigh:
		return models.StrategyReactive
	case forecast.Pattern == models.PatternSeasonal:
		return models.StrategyScheduled
	case forecast.Confidence > m.config.ConfidenceThreshold:
		return models.StrategyPredictive
	default:
		return models.StrategyHybrid
	}
}

func reasonFor(forecast *models.DemandForecast) string {
	if forecast.PredictedDemand > forecast.CurrentDemand {
		return "predicted_demand_" + string(forecast.Pattern)
	}
	return "demand_receding_" + string(forecast.Pattern)
}

// estimateSteps mirrors the executor's step plan: a decision always
// carries a step count even when it will run in a single step.
func estimateSteps(delta, maxPerStep int) int {
	if delta < 0 {
		delta = -delta
	}
	if delta == 0 {
		return 0
	}
	return (delta + maxPerStep - 1) / maxPerStep
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}
