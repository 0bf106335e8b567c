package sampler

import (
	"context"
	"errors"
	"time"

	"github.com/riverbyte/capacity-engine/internal/logger"
	"github.com/riverbyte/capacity-engine/internal/resilience"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

// ResilientSource wraps a MetricsSource with retries and a circuit breaker.
// ErrMetricUnavailable and ErrPoolNotFound pass through untouched: they are
// answers, not transport failures, and must not trip the breaker.
type ResilientSource struct {
	source         MetricsSource
	circuitBreaker *resilience.CircuitBreaker
	retryAttempts  int
	retryDelay     time.Duration
}

type ResilientSourceConfig struct {
	Source        MetricsSource
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientSource(cfg ResilientSourceConfig) *ResilientSource {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 1 * time.Second
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:          "metrics-source",
		MaxFailures:   cfg.MaxFailures,
		Timeout:       cfg.Timeout,
		OnStateChange: cfg.OnStateChange,
	})

	return &ResilientSource{
		source:         cfg.Source,
		circuitBreaker: cb,
		retryAttempts:  cfg.RetryAttempts,
		retryDelay:     cfg.RetryDelay,
	}
}

func (r *ResilientSource) GetMetric(ctx context.Context, poolID string, metric models.MetricName, since, until time.Time) ([]models.MetricSample, error) {
	var samples []models.MetricSample
	var lastErr error

	err := r.circuitBreaker.Execute(func() error {
		for attempt := 1; attempt <= r.retryAttempts; attempt++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var err error
			samples, err = r.source.GetMetric(ctx, poolID, metric, since, until)
			if err == nil {
				return nil
			}
			if errors.Is(err, ErrMetricUnavailable) || errors.Is(err, ErrPoolNotFound) {
				lastErr = err
				return nil
			}

			lastErr = err
			logger.WithPool(poolID).Warnf(
				"Metric fetch attempt %d/%d failed for %s: %v",
				attempt, r.retryAttempts, metric, err,
			)

			if attempt < r.retryAttempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(r.retryDelay):
				}
			}
		}
		return lastErr
	})

	if err != nil {
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}

	return samples, nil
}

func (r *ResilientSource) HealthCheck(ctx context.Context) error {
	return r.source.HealthCheck(ctx)
}

func (r *ResilientSource) Close() error {
	return r.source.Close()
}

func (r *ResilientSource) CircuitState() resilience.State {
	return r.circuitBreaker.State()
}

func (r *ResilientSource) ResetCircuit() {
	r.circuitBreaker.Reset()
}
