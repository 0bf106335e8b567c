package simulator

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/riverbyte/capacity-engine/pkg/models"
)

type PoolSimConfig struct {
	InitialCapacity int
	BaseRequestRate float64 // aggregate requests/sec across the pool
	RequestsPerUnit float64 // what a single unit sustains at full load
	Variance        float64 // noise as a fraction of the value, e.g. 0.05
}

// PoolSim models one resource pool: a request load shaped by a pattern,
// and derived metrics that react to the pool's current capacity. Scaling
// the pool out genuinely lowers its utilization, which closes the loop
// for end-to-end runs against the engine.
type PoolSim struct {
	id              string
	capacity        int
	baseRequestRate float64
	requestsPerUnit float64
	variance        float64
	pattern         Pattern
	spike           *Spike
	downMetrics     map[models.MetricName]bool
	mu              sync.RWMutex
}

type Spike struct {
	TargetRate   float64
	StartTime    time.Time
	Duration     time.Duration
	RampUp       time.Duration
	OriginalRate float64
}

func NewPoolSim(id string, cfg PoolSimConfig) *PoolSim {
	if cfg.InitialCapacity <= 0 {
		cfg.InitialCapacity = 3
	}
	if cfg.BaseRequestRate <= 0 {
		cfg.BaseRequestRate = 150
	}
	if cfg.RequestsPerUnit <= 0 {
		cfg.RequestsPerUnit = 100
	}
	if cfg.Variance <= 0 {
		cfg.Variance = 0.05
	}

	return &PoolSim{
		id:              id,
		capacity:        cfg.InitialCapacity,
		baseRequestRate: cfg.BaseRequestRate,
		requestsPerUnit: cfg.RequestsPerUnit,
		variance:        cfg.Variance,
		pattern:         PatternSteady,
		downMetrics:     make(map[models.MetricName]bool),
	}
}

// Samples produces one sample per minute across the window for a metric.
func (p *PoolSim) Samples(metric models.MetricName, since, until time.Time) []models.MetricSample {
	p.mu.RLock()
	defer p.mu.RUnlock()

	samples := make([]models.MetricSample, 0)
	for at := since.Truncate(time.Minute); !at.After(until); at = at.Add(time.Minute) {
		samples = append(samples, models.MetricSample{
			Timestamp: at,
			PoolID:    p.id,
			Metric:    metric,
			Value:     p.metricAt(metric, at),
		})
	}
	return samples
}

func (p *PoolSim) metricAt(metric models.MetricName, at time.Time) float64 {
	load := p.loadAt(at)
	utilization := p.utilizationFor(load)

	var value float64
	switch metric {
	case models.MetricCPUUtilization:
		value = utilization
	case models.MetricRequestRate:
		value = load
	case models.MetricP99Latency:
		// Latency stays flat until the pool saturates, then climbs hard.
		value = 40 + 400*math.Pow(utilization/100, 3)
	case models.MetricQueueDepth:
		overflow := load - float64(p.capacity)*p.requestsPerUnit
		if overflow < 0 {
			overflow = 0
		}
		value = overflow * 2
	default:
		return 0
	}

	value = p.noisy(value)
	return models.RangeFor(metric).Clamp(value)
}

func (p *PoolSim) loadAt(at time.Time) float64 {
	load := p.pattern.Apply(at, p.baseRequestRate)

	if p.spike != nil {
		elapsed := at.Sub(p.spike.StartTime)
		switch {
		case elapsed < 0 || elapsed > p.spike.Duration:
			// outside the spike window
		case elapsed < p.spike.RampUp:
			progress := float64(elapsed) / float64(p.spike.RampUp)
			load = p.spike.OriginalRate + (p.spike.TargetRate-p.spike.OriginalRate)*progress
		default:
			load = p.spike.TargetRate
		}
	}

	if load < 0 {
		load = 0
	}
	return load
}

func (p *PoolSim) utilizationFor(load float64) float64 {
	sustainable := float64(p.capacity) * p.requestsPerUnit
	if sustainable <= 0 {
		return 100
	}
	util := load / sustainable * 100
	if util > 100 {
		util = 100
	}
	return util
}

func (p *PoolSim) noisy(value float64) float64 {
	noise := (rand.Float64()*2 - 1) * p.variance * value
	return math.Round((value+noise)*100) / 100
}

func (p *PoolSim) Capacity() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.capacity
}

func (p *PoolSim) SetCapacity(capacity int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if capacity < 0 {
		capacity = 0
	}
	p.capacity = capacity
}

func (p *PoolSim) SetBaseRequestRate(rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.baseRequestRate = rate
}

func (p *PoolSim) SetVariance(variance float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.variance = variance
}

func (p *PoolSim) SetPattern(pattern Pattern) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pattern = pattern
}

func (p *PoolSim) GetPattern() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pattern.Name()
}

func (p *PoolSim) SetMetricDown(metric models.MetricName, down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downMetrics[metric] = down
}

func (p *PoolSim) MetricDown(metric models.MetricName) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.downMetrics[metric]
}

func (p *PoolSim) InjectSpike(targetRate float64, duration, rampUp time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Samples are stamped on minute boundaries; align the spike start so a
	// spike injected mid-minute is visible in the current minute's sample.
	p.spike = &Spike{
		TargetRate:   targetRate,
		StartTime:    time.Now().Truncate(time.Minute),
		Duration:     duration,
		RampUp:       rampUp,
		OriginalRate: p.baseRequestRate,
	}
}

func (p *PoolSim) Status() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	spikeInfo := map[string]interface{}{"active": false}
	if p.spike != nil {
		elapsed := time.Since(p.spike.StartTime)
		remaining := p.spike.Duration - elapsed
		if remaining < 0 {
			remaining = 0
		}
		spikeInfo = map[string]interface{}{
			"active":      true,
			"target_rate": p.spike.TargetRate,
			"remaining":   remaining.String(),
		}
	}

	now := time.Now()
	load := p.loadAt(now)

	return map[string]interface{}{
		"id":                p.id,
		"capacity":          p.capacity,
		"base_request_rate": p.baseRequestRate,
		"requests_per_unit": p.requestsPerUnit,
		"current_load":      math.Round(load*100) / 100,
		"utilization":       math.Round(p.utilizationFor(load)*100) / 100,
		"variance":          p.variance,
		"pattern":           p.pattern.Name(),
		"spike":             spikeInfo,
	}
}
