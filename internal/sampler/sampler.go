package sampler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/riverbyte/capacity-engine/internal/logger"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

type Config struct {
	Metrics       []models.MetricName
	LookbackWindow time.Duration
	MaxHistoryLen int
	Retention     time.Duration
}

// Sampler pulls current values for a fixed set of metrics and maintains a
// bounded, time-ordered history per (pool, metric). Eviction is FIFO by
// age and count, independent per series.
type Sampler struct {
	source    MetricsSource
	config    Config
	history   map[historyKey][]models.MetricSample
	historyMu sync.RWMutex
}

type historyKey struct {
	poolID string
	metric models.MetricName
}

func New(source MetricsSource, cfg Config) *Sampler {
	if len(cfg.Metrics) == 0 {
		cfg.Metrics = []models.MetricName{
			models.MetricCPUUtilization,
			models.MetricRequestRate,
			models.MetricP99Latency,
			models.MetricQueueDepth,
		}
	}
	if cfg.LookbackWindow == 0 {
		cfg.LookbackWindow = time.Minute
	}
	if cfg.MaxHistoryLen == 0 {
		cfg.MaxHistoryLen = 1008
	}
	if cfg.Retention == 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}

	return &Sampler{
		source:  source,
		config:  cfg,
		history: make(map[historyKey][]models.MetricSample),
	}
}

// Sample collects the current value of every configured metric for a pool.
// A metric whose source fails is flagged in the result's Unavailable list
// and the rest are returned: partial failure is not a sampling failure.
// Only a pool with no reachable metrics at all yields an error.
func (s *Sampler) Sample(ctx context.Context, poolID string) (*models.SampleSet, error) {
	now := time.Now()
	set := &models.SampleSet{
		PoolID:    poolID,
		Timestamp: now,
	}

	for _, metric := range s.config.Metrics {
		samples, err := s.source.GetMetric(ctx, poolID, metric, now.Add(-s.config.LookbackWindow), now)
		if err != nil {
			if errors.Is(err, ErrPoolNotFound) {
				return nil, err
			}
			logger.WithPool(poolID).Warnf("Metric %s unavailable: %v", metric, err)
			set.Unavailable = append(set.Unavailable, metric)
			continue
		}
		if len(samples) == 0 {
			// A true empty window is a valid answer, not an outage.
			continue
		}

		latest := samples[len(samples)-1]
		latest.PoolID = poolID
		latest.Metric = metric
		set.Samples = append(set.Samples, latest)
		s.record(poolID, metric, latest)
	}

	if set.IsEmpty() && len(set.Unavailable) == len(s.config.Metrics) {
		return nil, ErrSourceFailed
	}

	logger.WithPool(poolID).Debugf(
		"Sampled %d metric(s), %d unavailable", len(set.Samples), len(set.Unavailable),
	)

	return set, nil
}

func (s *Sampler) record(poolID string, metric models.MetricName, sample models.MetricSample) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	key := historyKey{poolID: poolID, metric: metric}
	series := append(s.history[key], sample)

	cutoff := sample.Timestamp.Add(-s.config.Retention)
	for len(series) > 0 && series[0].Timestamp.Before(cutoff) {
		series = series[1:]
	}
	if len(series) > s.config.MaxHistoryLen {
		series = series[len(series)-s.config.MaxHistoryLen:]
	}

	s.history[key] = series
}

// History returns a copy of the recorded series for one (pool, metric).
func (s *Sampler) History(poolID string, metric models.MetricName) []models.MetricSample {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	series := s.history[historyKey{poolID: poolID, metric: metric}]
	result := make([]models.MetricSample, len(series))
	copy(result, series)
	return result
}

func (s *Sampler) ClearHistory(poolID string) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	for key := range s.history {
		if key.poolID == poolID {
			delete(s.history, key)
		}
	}
}

func (s *Sampler) Metrics() []models.MetricName {
	return s.config.Metrics
}
