package forecast

import (
	"errors"
	"math"
	"time"

	"github.com/riverbyte/capacity-engine/internal/logger"
	"github.com/riverbyte/capacity-engine/internal/trend"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

// ErrInsufficientData means there was nothing usable to forecast from.
// It is a clean "do not act this cycle" signal, not a failure.
var ErrInsufficientData = errors.New("insufficient data to forecast")

type Config struct {
	HorizonMinutes       int
	SampleInterval       time.Duration
	ScaleOutThresholdPct float64
	ScaleInThresholdPct  float64
	// RequestRatePerUnit is the request rate one capacity unit sustains at
	// full utilization, used to express request-rate demand as a percentage
	// when CPU data is unavailable.
	RequestRatePerUnit float64
	SufficiencyWindow  int
	Classifier         ClassifierConfig
}

type Forecaster struct {
	config     Config
	classifier *Classifier
}

func New(cfg Config) *Forecaster {
	if cfg.HorizonMinutes == 0 {
		cfg.HorizonMinutes = 60
	}
	if cfg.SampleInterval == 0 {
		cfg.SampleInterval = time.Minute
	}
	if cfg.ScaleOutThresholdPct == 0 {
		cfg.ScaleOutThresholdPct = 70.0
	}
	if cfg.ScaleInThresholdPct == 0 {
		cfg.ScaleInThresholdPct = 30.0
	}
	if cfg.RequestRatePerUnit == 0 {
		cfg.RequestRatePerUnit = 100.0
	}
	if cfg.SufficiencyWindow == 0 {
		cfg.SufficiencyWindow = 24
	}

	return &Forecaster{
		config:     cfg,
		classifier: NewClassifier(cfg.Classifier),
	}
}

// Forecast projects near-future demand for a pool from the current sample
// set plus the chosen metric's history and trend. A cycle with no usable
// signal returns ErrInsufficientData: the caller holds for the cycle, it
// does not fail.
func (f *Forecaster) Forecast(
	set *models.SampleSet,
	history []models.MetricSample,
	estimate trend.Estimate,
	currentCapacity int,
) (*models.DemandForecast, error) {
	if set == nil || set.IsEmpty() {
		return nil, ErrInsufficientData
	}

	metric, current, ok := f.demandSignal(set, currentCapacity)
	if !ok {
		return nil, ErrInsufficientData
	}

	fc := models.NewDemandForecast(set.PoolID, metric)
	fc.HorizonMinutes = f.config.HorizonMinutes
	fc.CurrentDemand = current

	horizonSamples := float64(f.config.HorizonMinutes) / f.config.SampleInterval.Minutes()
	slope := estimate.Slope
	if metric == models.MetricRequestRate && currentCapacity > 0 {
		// The request-rate trend is in req/s per sample; convert it to the
		// same percentage terms as CurrentDemand before projecting.
		slope = slope / (float64(currentCapacity) * f.config.RequestRatePerUnit) * 100
	}
	demandRange := models.MetricRange{Min: 0, Max: 100}
	fc.PredictedDemand = demandRange.Clamp(current + slope*horizonSamples)

	fc.Pattern = f.classifier.Classify(history)
	fc.Confidence = f.confidence(estimate, set)
	fc.RecommendedCapacity = f.recommendCapacity(fc.PredictedDemand, currentCapacity)
	fc.Urgency = urgencyFor(fc.PredictedDemand)

	logger.WithPool(set.PoolID).Debugf(
		"Forecast: %s %.1f%% -> %.1f%% (pattern=%s, confidence=%.2f, recommend=%d)",
		metric, fc.CurrentDemand, fc.PredictedDemand, fc.Pattern, fc.Confidence, fc.RecommendedCapacity,
	)

	return fc, nil
}

// demandSignal picks the demand metric for this cycle: CPU utilization when
// present, request rate normalized to a utilization percentage otherwise.
func (f *Forecaster) demandSignal(set *models.SampleSet, currentCapacity int) (models.MetricName, float64, bool) {
	if v, ok := set.Value(models.MetricCPUUtilization); ok {
		return models.MetricCPUUtilization, v, true
	}

	if v, ok := set.Value(models.MetricRequestRate); ok && currentCapacity > 0 {
		pct := v / (float64(currentCapacity) * f.config.RequestRatePerUnit) * 100
		return models.MetricRequestRate, math.Min(pct, 100), true
	}

	return "", 0, false
}

// confidence blends trend consistency (0.7) with data sufficiency (0.3),
// then discounts by metric coverage so a cycle with half its sources down
// is trusted less.
func (f *Forecaster) confidence(estimate trend.Estimate, set *models.SampleSet) float64 {
	normVolatility := math.Min(estimate.Volatility/50.0, 1.0)
	consistency := 1.0 - normVolatility
	sufficiency := math.Min(float64(estimate.Samples)/float64(f.config.SufficiencyWindow), 1.0)

	score := 0.7*consistency + 0.3*sufficiency
	score *= set.Coverage()

	return math.Max(0, math.Min(score, 1.0))
}

func (f *Forecaster) recommendCapacity(predicted float64, current int) int {
	switch {
	case predicted > f.config.ScaleOutThresholdPct:
		return int(math.Ceil(float64(current) * 1.5))
	case predicted < f.config.ScaleInThresholdPct:
		target := int(math.Floor(float64(current) * 0.8))
		if target < 1 {
			target = 1
		}
		return target
	default:
		return current
	}
}

func urgencyFor(predicted float64) models.Urgency {
	switch {
	case predicted > 80:
		return models.UrgencyHigh
	case predicted > 60:
		return models.UrgencyMedium
	default:
		return models.UrgencyLow
	}
}
