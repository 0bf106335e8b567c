package sampler

import (
	"context"
	"errors"
	"time"

	"github.com/riverbyte/capacity-engine/pkg/models"
)

var (
	ErrSourceFailed      = errors.New("metric source request failed")
	ErrMetricUnavailable = errors.New("metric unavailable")
	ErrTimeout           = errors.New("metric source timeout")
	ErrPoolNotFound      = errors.New("pool not found")
	ErrInvalidResponse   = errors.New("invalid response from metric source")
)

// MetricsSource is the external dependency that serves raw metric data.
// An unavailable metric must be signalled with ErrMetricUnavailable, which
// is distinct from a successful empty result.
type MetricsSource interface {
	// GetMetric fetches samples for one metric of one pool over a window.
	GetMetric(ctx context.Context, poolID string, metric models.MetricName, since, until time.Time) ([]models.MetricSample, error)

	// HealthCheck verifies the source is reachable
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the source
	Close() error
}
