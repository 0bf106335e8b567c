package forecast

import (
	"time"

	"github.com/riverbyte/capacity-engine/internal/trend"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

// ClassifierConfig tunes the pattern predicates.
type ClassifierConfig struct {
	// SpikeStdDev is the standard deviation of the most recent
	// SpikeWindow samples above which demand is classified as a spike.
	SpikeStdDev float64
	SpikeWindow int
	// SeasonalCorrelation is the minimum day-over-day correlation of
	// hourly buckets for the seasonal classification.
	SeasonalCorrelation float64
	// CyclicalCorrelation is the minimum first-half/second-half
	// correlation for the cyclical classification.
	CyclicalCorrelation float64
}

func (c ClassifierConfig) withDefaults() ClassifierConfig {
	if c.SpikeStdDev == 0 {
		c.SpikeStdDev = 15.0
	}
	if c.SpikeWindow == 0 {
		c.SpikeWindow = 5
	}
	if c.SeasonalCorrelation == 0 {
		c.SeasonalCorrelation = 0.7
	}
	if c.CyclicalCorrelation == 0 {
		c.CyclicalCorrelation = 0.7
	}
	return c
}

type patternRule struct {
	pattern   models.DemandPattern
	predicate func(history []models.MetricSample) bool
}

// Classifier assigns a demand pattern by evaluating an explicit,
// priority-ordered rule list once per forecast. First match wins;
// the final rule always matches.
type Classifier struct {
	rules []patternRule
}

func NewClassifier(cfg ClassifierConfig) *Classifier {
	cfg = cfg.withDefaults()

	return &Classifier{
		rules: []patternRule{
			{models.PatternSpike, func(h []models.MetricSample) bool {
				return recentStdDev(h, cfg.SpikeWindow) > cfg.SpikeStdDev
			}},
			{models.PatternSeasonal, func(h []models.MetricSample) bool {
				return dayOverDayCorrelation(h) > cfg.SeasonalCorrelation
			}},
			{models.PatternCyclical, func(h []models.MetricSample) bool {
				return halfWindowCorrelation(h) > cfg.CyclicalCorrelation
			}},
			// Default. The source material labelled this steady_increase
			// even for flat or falling demand; steady is the honest name.
			{models.PatternSteady, func([]models.MetricSample) bool {
				return true
			}},
		},
	}
}

func (c *Classifier) Classify(history []models.MetricSample) models.DemandPattern {
	for _, rule := range c.rules {
		if rule.predicate(history) {
			return rule.pattern
		}
	}
	return models.PatternSteady
}

func recentStdDev(history []models.MetricSample, window int) float64 {
	if len(history) < 2 {
		return 0
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}
	values := make([]float64, len(history))
	for i, s := range history {
		values[i] = s.Value
	}
	return trend.StdDev(values)
}

// dayOverDayCorrelation compares hourly-bucket means of the two most recent
// days of history. Needs at least half of each day's buckets populated in
// both days to say anything.
func dayOverDayCorrelation(history []models.MetricSample) float64 {
	if len(history) < 4 {
		return 0
	}

	latest := history[len(history)-1].Timestamp
	dayStart := latest.Truncate(24 * time.Hour)

	var todaySum, yesterdaySum [24]float64
	var todayCount, yesterdayCount [24]int

	for _, s := range history {
		hour := s.Timestamp.Hour()
		switch {
		case !s.Timestamp.Before(dayStart):
			todaySum[hour] += s.Value
			todayCount[hour]++
		case !s.Timestamp.Before(dayStart.Add(-24 * time.Hour)):
			yesterdaySum[hour] += s.Value
			yesterdayCount[hour]++
		}
	}

	var today, yesterday []float64
	for h := 0; h < 24; h++ {
		if todayCount[h] > 0 && yesterdayCount[h] > 0 {
			today = append(today, todaySum[h]/float64(todayCount[h]))
			yesterday = append(yesterday, yesterdaySum[h]/float64(yesterdayCount[h]))
		}
	}

	if len(today) < 3 {
		return 0
	}
	return trend.Correlation(today, yesterday)
}

func halfWindowCorrelation(history []models.MetricSample) float64 {
	n := len(history)
	if n < 4 {
		return 0
	}

	half := n / 2
	first := make([]float64, half)
	second := make([]float64, half)
	for i := 0; i < half; i++ {
		first[i] = history[i].Value
		second[i] = history[n-half+i].Value
	}
	return trend.Correlation(first, second)
}
