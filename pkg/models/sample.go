package models

import "time"

type MetricName string

const (
	MetricCPUUtilization MetricName = "cpu_utilization"
	MetricRequestRate    MetricName = "request_rate"
	MetricP99Latency     MetricName = "p99_latency_ms"
	MetricQueueDepth     MetricName = "queue_depth"
)

// MetricRange is the valid value range for a metric. Forecasts are clamped
// to this range regardless of slope magnitude.
type MetricRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r MetricRange) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// RangeFor returns the declared valid range for a metric.
func RangeFor(metric MetricName) MetricRange {
	switch metric {
	case MetricCPUUtilization:
		return MetricRange{Min: 0, Max: 100}
	default:
		return MetricRange{Min: 0, Max: 1e9}
	}
}

// MetricSample is a single point-in-time utilization/demand reading for a
// resource pool. Immutable once recorded.
type MetricSample struct {
	Timestamp time.Time  `json:"timestamp"`
	PoolID    string     `json:"pool_id"`
	Metric    MetricName `json:"metric"`
	Value     float64    `json:"value"`
}

// SampleSet is the result of one sampling cycle for a pool. A metric whose
// source was unreachable appears in Unavailable rather than as a zero-valued
// sample, so downstream trend math never confuses "missing" with "zero".
type SampleSet struct {
	PoolID      string         `json:"pool_id"`
	Timestamp   time.Time      `json:"timestamp"`
	Samples     []MetricSample `json:"samples"`
	Unavailable []MetricName   `json:"unavailable,omitempty"`
}

func (s *SampleSet) Value(metric MetricName) (float64, bool) {
	for _, sample := range s.Samples {
		if sample.Metric == metric {
			return sample.Value, true
		}
	}
	return 0, false
}

func (s *SampleSet) IsUnavailable(metric MetricName) bool {
	for _, m := range s.Unavailable {
		if m == metric {
			return true
		}
	}
	return false
}

func (s *SampleSet) IsEmpty() bool {
	return len(s.Samples) == 0
}

// Coverage is the fraction of requested metrics that produced a sample.
// Used to discount forecast confidence when sources were partially down.
func (s *SampleSet) Coverage() float64 {
	total := len(s.Samples) + len(s.Unavailable)
	if total == 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(total)
}
