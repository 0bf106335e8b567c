package models

import "time"

type DemandPattern string

const (
	PatternSteady    DemandPattern = "steady"
	PatternSpike     DemandPattern = "spike"
	PatternSeasonal  DemandPattern = "seasonal"
	PatternCyclical  DemandPattern = "cyclical"
	PatternAnomalous DemandPattern = "anomalous"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// DemandForecast is a near-future demand projection for one pool, produced
// once per decision cycle. Immutable after creation; retained for audit.
type DemandForecast struct {
	ForecastID          string        `json:"forecast_id"`
	PoolID              string        `json:"pool_id"`
	CreatedAt           time.Time     `json:"created_at"`
	Metric              MetricName    `json:"metric"`
	CurrentDemand       float64       `json:"current_demand"`
	PredictedDemand     float64       `json:"predicted_demand"`
	Confidence          float64       `json:"confidence"`
	HorizonMinutes      int           `json:"time_horizon_minutes"`
	Pattern             DemandPattern `json:"demand_pattern"`
	RecommendedCapacity int           `json:"recommended_capacity"`
	Urgency             Urgency       `json:"urgency"`
}

func NewDemandForecast(poolID string, metric MetricName) *DemandForecast {
	return &DemandForecast{
		ForecastID: NewUUID(),
		PoolID:     poolID,
		Metric:     metric,
		CreatedAt:  time.Now(),
	}
}

func (f *DemandForecast) IsHighConfidence(threshold float64) bool {
	return f.Confidence >= threshold
}
