package models

import "time"

type Strategy string

const (
	StrategyPredictive Strategy = "predictive"
	StrategyReactive   Strategy = "reactive"
	StrategyScheduled  Strategy = "scheduled"
	StrategyHybrid     Strategy = "hybrid"
)

type Direction string

const (
	DirectionScaleOut Direction = "scale_out"
	DirectionScaleIn  Direction = "scale_in"
)

// ScalingDecision is produced by the decision maker and consumed exactly
// once by the staged executor. Immutable. A no-op cycle produces no
// decision at all rather than a zero-delta one.
type ScalingDecision struct {
	DecisionID      string         `json:"decision_id"`
	PoolID          string         `json:"pool_id"`
	CurrentCapacity int            `json:"current_capacity"`
	TargetCapacity  int            `json:"target_capacity"`
	Strategy        Strategy       `json:"strategy"`
	Urgency         Urgency        `json:"urgency"`
	Accommodation   *Accommodation `json:"constraint_accommodations,omitempty"`
	EstimatedSteps  int            `json:"estimated_steps"`
	Reason          string         `json:"reason,omitempty"`
	ForecastID      string         `json:"forecast_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (d *ScalingDecision) Delta() int {
	return d.TargetCapacity - d.CurrentCapacity
}

func (d *ScalingDecision) Direction() Direction {
	if d.Delta() < 0 {
		return DirectionScaleIn
	}
	return DirectionScaleOut
}
