package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/riverbyte/capacity-engine/internal/logger"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

type Config struct {
	Port int
}

type Simulator struct {
	config     Config
	pools      map[string]*PoolSim
	mu         sync.RWMutex
	httpServer *http.Server
}

func New(cfg Config) *Simulator {
	if cfg.Port == 0 {
		cfg.Port = 9000
	}

	return &Simulator{
		config: cfg,
		pools:  make(map[string]*PoolSim),
	}
}

func cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Simulator) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", cors(s.healthHandler))
	mux.HandleFunc("/pools", cors(s.listPoolsHandler))
	mux.HandleFunc("/pools/", cors(s.poolHandler))
	mux.HandleFunc("/spike", cors(s.spikeHandler))
	mux.HandleFunc("/pattern", cors(s.patternHandler))

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Infof("Simulator listening on %s", addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Simulator server error: %v", err)
		}
	}()

	return nil
}

func (s *Simulator) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Simulator) GetOrCreatePool(poolID string) *PoolSim {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pool, exists := s.pools[poolID]; exists {
		return pool
	}

	pool := NewPoolSim(poolID, PoolSimConfig{})
	s.pools[poolID] = pool

	logger.Infof("Created new simulated pool: %s", poolID)
	return pool
}

func (s *Simulator) GetPool(poolID string) (*PoolSim, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool, exists := s.pools[poolID]
	return pool, exists
}

// HTTP Handlers

func (s *Simulator) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "pool-simulator",
	})
}

// poolHandler dispatches /pools/{poolID} and /pools/{poolID}/metrics/{metric}.
func (s *Simulator) poolHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/pools/")
	parts := strings.Split(rest, "/")

	if parts[0] == "" {
		http.Error(w, "pool ID required", http.StatusBadRequest)
		return
	}
	poolID := parts[0]

	if len(parts) == 3 && parts[1] == "metrics" {
		s.metricsHandler(w, r, poolID, models.MetricName(parts[2]))
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getPoolHandler(w, r, poolID)
	case http.MethodPost:
		s.createPoolHandler(w, r, poolID)
	case http.MethodPut:
		s.updatePoolHandler(w, r, poolID)
	case http.MethodDelete:
		s.deletePoolHandler(w, r, poolID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Simulator) metricsHandler(w http.ResponseWriter, r *http.Request, poolID string, metric models.MetricName) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pool, exists := s.GetPool(poolID)
	if !exists {
		http.Error(w, "pool not found", http.StatusNotFound)
		return
	}

	if pool.MetricDown(metric) {
		http.Error(w, "metric unavailable", http.StatusServiceUnavailable)
		return
	}

	until := time.Now()
	since := until.Add(-time.Hour)
	if v := r.URL.Query().Get("since"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			since = time.Unix(unix, 0)
		}
	}
	if v := r.URL.Query().Get("until"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			until = time.Unix(unix, 0)
		}
	}

	samples := pool.Samples(metric, since, until)
	payload := make([]map[string]interface{}, 0, len(samples))
	for _, sample := range samples {
		payload = append(payload, map[string]interface{}{
			"timestamp": sample.Timestamp.Format(time.RFC3339),
			"value":     sample.Value,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"pool_id": poolID,
		"metric":  metric,
		"samples": payload,
	})
}

func (s *Simulator) listPoolsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	pools := make([]map[string]interface{}, 0, len(s.pools))
	for id, pool := range s.pools {
		pools = append(pools, map[string]interface{}{
			"id":       id,
			"capacity": pool.Capacity(),
			"pattern":  pool.GetPattern(),
		})
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"pools": pools,
		"count": len(pools),
	})
}

func (s *Simulator) getPoolHandler(w http.ResponseWriter, r *http.Request, poolID string) {
	pool, exists := s.GetPool(poolID)
	if !exists {
		http.Error(w, "pool not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pool.Status())
}

type CreatePoolRequest struct {
	Capacity        int     `json:"capacity"`
	BaseRequestRate float64 `json:"base_request_rate"`
	RequestsPerUnit float64 `json:"requests_per_unit"`
	Variance        float64 `json:"variance"`
}

func (s *Simulator) createPoolHandler(w http.ResponseWriter, r *http.Request, poolID string) {
	var req CreatePoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	pool := NewPoolSim(poolID, PoolSimConfig{
		InitialCapacity: req.Capacity,
		BaseRequestRate: req.BaseRequestRate,
		RequestsPerUnit: req.RequestsPerUnit,
		Variance:        req.Variance,
	})
	s.pools[poolID] = pool
	s.mu.Unlock()

	logger.Infof("Created pool %s with capacity %d", poolID, pool.Capacity())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(pool.Status())
}

type UpdatePoolRequest struct {
	Capacity        *int     `json:"capacity"`
	BaseRequestRate *float64 `json:"base_request_rate"`
	Variance        *float64 `json:"variance"`
}

func (s *Simulator) updatePoolHandler(w http.ResponseWriter, r *http.Request, poolID string) {
	pool, exists := s.GetPool(poolID)
	if !exists {
		http.Error(w, "pool not found", http.StatusNotFound)
		return
	}

	var req UpdatePoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Capacity != nil {
		pool.SetCapacity(*req.Capacity)
	}
	if req.BaseRequestRate != nil {
		pool.SetBaseRequestRate(*req.BaseRequestRate)
	}
	if req.Variance != nil {
		pool.SetVariance(*req.Variance)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pool.Status())
}

func (s *Simulator) deletePoolHandler(w http.ResponseWriter, r *http.Request, poolID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pools[poolID]; !exists {
		http.Error(w, "pool not found", http.StatusNotFound)
		return
	}

	delete(s.pools, poolID)
	logger.Infof("Deleted pool %s", poolID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "pool deleted"})
}

type SpikeRequest struct {
	PoolID     string  `json:"pool_id"`
	TargetRate float64 `json:"target_rate"`
	Duration   string  `json:"duration"`
	RampUp     string  `json:"ramp_up"`
}

func (s *Simulator) spikeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SpikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	pool := s.GetOrCreatePool(req.PoolID)

	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		duration = 5 * time.Minute
	}

	rampUp, err := time.ParseDuration(req.RampUp)
	if err != nil {
		rampUp = 30 * time.Second
	}

	pool.InjectSpike(req.TargetRate, duration, rampUp)

	logger.Infof("Injected spike on pool %s: target=%.1f req/s, duration=%s",
		req.PoolID, req.TargetRate, duration)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":     "spike injected",
		"pool_id":     req.PoolID,
		"target_rate": req.TargetRate,
		"duration":    duration.String(),
		"ramp_up":     rampUp.String(),
	})
}

type PatternRequest struct {
	PoolID  string `json:"pool_id"`
	Pattern string `json:"pattern"` // "steady", "daily", "weekly", "random", "cyclical", "gradual_rise"
}

func (s *Simulator) patternHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	pool := s.GetOrCreatePool(req.PoolID)
	pool.SetPattern(ParsePattern(req.Pattern))

	logger.Infof("Set pattern %s on pool %s", req.Pattern, req.PoolID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "pattern set",
		"pool_id": req.PoolID,
		"pattern": req.Pattern,
	})
}
