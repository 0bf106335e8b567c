package sampler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/riverbyte/capacity-engine/pkg/models"
)

// MockSource serves synthetic metric values for tests and demo runs.
// Individual metrics can be marked down to exercise partial-failure paths.
type MockSource struct {
	mu          sync.Mutex
	pools       map[string]bool
	baseValues  map[models.MetricName]float64
	variance    float64
	downMetrics map[models.MetricName]bool
	shouldFail  bool
	failureErr  error
}

type MockSourceConfig struct {
	BaseCPU         float64
	BaseRequestRate float64
	Variance        float64
}

func NewMockSource(cfg MockSourceConfig) *MockSource {
	baseCPU := cfg.BaseCPU
	if baseCPU == 0 {
		baseCPU = 50.0
	}
	baseRate := cfg.BaseRequestRate
	if baseRate == 0 {
		baseRate = 200.0
	}
	variance := cfg.Variance
	if variance == 0 {
		variance = 5.0
	}

	return &MockSource{
		pools: make(map[string]bool),
		baseValues: map[models.MetricName]float64{
			models.MetricCPUUtilization: baseCPU,
			models.MetricRequestRate:    baseRate,
			models.MetricP99Latency:     120.0,
			models.MetricQueueDepth:     10.0,
		},
		variance:    variance,
		downMetrics: make(map[models.MetricName]bool),
	}
}

func (m *MockSource) AddPool(poolID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools[poolID] = true
}

func (m *MockSource) SetBaseValue(metric models.MetricName, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseValues[metric] = value
}

func (m *MockSource) SetMetricDown(metric models.MetricName, down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downMetrics[metric] = down
}

func (m *MockSource) SetShouldFail(shouldFail bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFail = shouldFail
	m.failureErr = err
}

func (m *MockSource) GetMetric(ctx context.Context, poolID string, metric models.MetricName, since, until time.Time) ([]models.MetricSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFail {
		if m.failureErr != nil {
			return nil, m.failureErr
		}
		return nil, ErrSourceFailed
	}
	if !m.pools[poolID] {
		return nil, ErrPoolNotFound
	}
	if m.downMetrics[metric] {
		return nil, ErrMetricUnavailable
	}

	base := m.baseValues[metric]
	value := base + (rand.Float64()*2-1)*m.variance
	value = models.RangeFor(metric).Clamp(value)

	return []models.MetricSample{{
		Timestamp: until,
		PoolID:    poolID,
		Metric:    metric,
		Value:     value,
	}}, nil
}

func (m *MockSource) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return ErrSourceFailed
	}
	return nil
}

func (m *MockSource) Close() error {
	return nil
}
