package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/riverbyte/capacity-engine/internal/logger"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	samplesTotal    map[string]int64
	sampleErrors    map[string]int64
	forecastsTotal  map[string]map[string]int64 // pool -> pattern -> count
	decisionsTotal  map[string]map[string]int64 // pool -> direction -> count
	stepsTotal      map[string]map[string]int64 // pool -> result -> count
	executionsTotal map[string]map[string]int64 // pool -> terminal state -> count

	// Gauges
	poolCapacity        map[string]int
	poolDemand          map[string]float64
	poolPredicted       map[string]float64
	queueDepth          map[string]int
	circuitBreakerState map[string]int // 0=closed, 1=open, 2=half-open

	// Histograms (simplified - just track last values)
	sampleLatency   map[string]time.Duration
	forecastLatency map[string]time.Duration
}

var (
	instance *Metrics
	once     sync.Once
)

func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			samplesTotal:        make(map[string]int64),
			sampleErrors:        make(map[string]int64),
			forecastsTotal:      make(map[string]map[string]int64),
			decisionsTotal:      make(map[string]map[string]int64),
			stepsTotal:          make(map[string]map[string]int64),
			executionsTotal:     make(map[string]map[string]int64),
			poolCapacity:        make(map[string]int),
			poolDemand:          make(map[string]float64),
			poolPredicted:       make(map[string]float64),
			queueDepth:          make(map[string]int),
			circuitBreakerState: make(map[string]int),
			sampleLatency:       make(map[string]time.Duration),
			forecastLatency:     make(map[string]time.Duration),
		}
	})
	return instance
}

func (m *Metrics) IncSamples(poolID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samplesTotal[poolID]++
}

func (m *Metrics) IncSampleErrors(poolID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sampleErrors[poolID]++
}

func (m *Metrics) IncForecast(poolID, pattern string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forecastsTotal[poolID] == nil {
		m.forecastsTotal[poolID] = make(map[string]int64)
	}
	m.forecastsTotal[poolID][pattern]++
}

func (m *Metrics) IncDecision(poolID, direction string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decisionsTotal[poolID] == nil {
		m.decisionsTotal[poolID] = make(map[string]int64)
	}
	m.decisionsTotal[poolID][direction]++
}

func (m *Metrics) IncStep(poolID, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stepsTotal[poolID] == nil {
		m.stepsTotal[poolID] = make(map[string]int64)
	}
	m.stepsTotal[poolID][result]++
}

func (m *Metrics) IncExecution(poolID, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.executionsTotal[poolID] == nil {
		m.executionsTotal[poolID] = make(map[string]int64)
	}
	m.executionsTotal[poolID][state]++
}

func (m *Metrics) SetCapacity(poolID string, capacity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poolCapacity[poolID] = capacity
}

func (m *Metrics) SetDemand(poolID string, demand float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poolDemand[poolID] = demand
}

func (m *Metrics) SetPredictedDemand(poolID string, demand float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poolPredicted[poolID] = demand
}

func (m *Metrics) SetQueueDepth(poolID string, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueDepth[poolID] = depth
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.circuitBreakerState[name] = state
}

func (m *Metrics) SetSampleLatency(poolID string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sampleLatency[poolID] = d
}

func (m *Metrics) SetForecastLatency(poolID string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forecastLatency[poolID] = d
}

func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		for pool, count := range m.samplesTotal {
			writeMetric(w, "capacity_engine_samples_total", map[string]string{"pool_id": pool}, float64(count))
		}

		for pool, count := range m.sampleErrors {
			writeMetric(w, "capacity_engine_sample_errors_total", map[string]string{"pool_id": pool}, float64(count))
		}

		for pool, patterns := range m.forecastsTotal {
			for pattern, count := range patterns {
				writeMetric(w, "capacity_engine_forecasts_total", map[string]string{"pool_id": pool, "pattern": pattern}, float64(count))
			}
		}

		for pool, directions := range m.decisionsTotal {
			for direction, count := range directions {
				writeMetric(w, "capacity_engine_decisions_total", map[string]string{"pool_id": pool, "direction": direction}, float64(count))
			}
		}

		for pool, results := range m.stepsTotal {
			for result, count := range results {
				writeMetric(w, "capacity_engine_execution_steps_total", map[string]string{"pool_id": pool, "result": result}, float64(count))
			}
		}

		for pool, states := range m.executionsTotal {
			for state, count := range states {
				writeMetric(w, "capacity_engine_executions_total", map[string]string{"pool_id": pool, "state": state}, float64(count))
			}
		}

		for pool, capacity := range m.poolCapacity {
			writeMetric(w, "capacity_engine_pool_capacity", map[string]string{"pool_id": pool}, float64(capacity))
		}

		for pool, demand := range m.poolDemand {
			writeMetric(w, "capacity_engine_pool_demand_percent", map[string]string{"pool_id": pool}, demand)
		}

		for pool, demand := range m.poolPredicted {
			writeMetric(w, "capacity_engine_pool_predicted_demand_percent", map[string]string{"pool_id": pool}, demand)
		}

		for pool, depth := range m.queueDepth {
			writeMetric(w, "capacity_engine_decision_queue_depth", map[string]string{"pool_id": pool}, float64(depth))
		}

		for name, state := range m.circuitBreakerState {
			writeMetric(w, "capacity_engine_circuit_breaker_state", map[string]string{"name": name}, float64(state))
		}

		for pool, latency := range m.sampleLatency {
			writeMetric(w, "capacity_engine_sample_latency_ms", map[string]string{"pool_id": pool}, float64(latency.Milliseconds()))
		}

		for pool, latency := range m.forecastLatency {
			writeMetric(w, "capacity_engine_forecast_latency_ms", map[string]string{"pool_id": pool}, float64(latency.Milliseconds()))
		}
	})
}

func writeMetric(w http.ResponseWriter, name string, labels map[string]string, value float64) {
	labelStr := ""
	if len(labels) > 0 {
		labelStr = "{"
		first := true
		for k, v := range labels {
			if !first {
				labelStr += ","
			}
			labelStr += k + `="` + v + `"`
			first = false
		}
		labelStr += "}"
	}
	w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(value, 'f', -1, 64) + "\n"))
}

func StartServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Get().Handler())

	addr := ":" + strconv.Itoa(port)
	go func() {
		logger.Infof("Metrics server listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Errorf("Metrics server error: %v", err)
		}
	}()
}
