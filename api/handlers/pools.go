package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/riverbyte/capacity-engine/internal/sampler"
	"github.com/riverbyte/capacity-engine/pkg/config"
	"github.com/riverbyte/capacity-engine/pkg/database/queries"
	"github.com/riverbyte/capacity-engine/pkg/models"
	"github.com/riverbyte/capacity-engine/pkg/validation"
)

// PoolManager interface for orchestrator operations
type PoolManager interface {
	StartPool(pool *models.ResourcePool, source sampler.MetricsSource) error
	StopPool(poolID string) error
	GetPoolStatus(poolID string) (bool, error)
	SubscribeAllEvents() <-chan *models.Event
}

type PoolHandler struct {
	poolRepo    *queries.PoolRepository
	poolManager PoolManager
	samplerCfg  config.SamplerConfig
	httpClient  *http.Client
}

func NewPoolHandler(poolRepo *queries.PoolRepository, poolManager PoolManager, samplerCfg config.SamplerConfig) *PoolHandler {
	if samplerCfg.Endpoint == "" {
		samplerCfg.Endpoint = "http://localhost:9000"
	}
	return &PoolHandler{
		poolRepo:    poolRepo,
		poolManager: poolManager,
		samplerCfg:  samplerCfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type CreatePoolRequest struct {
	Name         string             `json:"name" binding:"required,min=1,max=100" example:"web-frontend"`
	ResourceType string             `json:"resource_type" binding:"required" example:"compute"`
	MinCapacity  int                `json:"min_capacity" binding:"min=0" example:"2"`
	MaxCapacity  int                `json:"max_capacity" binding:"required,min=1" example:"20"`
	Config       *models.PoolConfig `json:"config"`
}

type UpdatePoolRequest struct {
	Name        string             `json:"name" binding:"omitempty,min=1,max=100" example:"web-frontend-v2"`
	MinCapacity *int               `json:"min_capacity" binding:"omitempty,min=0" example:"3"`
	MaxCapacity *int               `json:"max_capacity" binding:"omitempty,min=1" example:"30"`
	Status      string             `json:"status" binding:"omitempty,oneof=active paused" example:"active"`
	Config      *models.PoolConfig `json:"config"`
}

type PoolResponse struct {
	ID           string             `json:"id" example:"d3f1a926-7d5b-4b8e-a7cf-9e2b6f41c083"`
	Name         string             `json:"name" example:"web-frontend"`
	ResourceType string             `json:"resource_type" example:"compute"`
	MinCapacity  int                `json:"min_capacity" example:"2"`
	MaxCapacity  int                `json:"max_capacity" example:"20"`
	Status       string             `json:"status" example:"active"`
	Config       *models.PoolConfig `json:"config,omitempty"`
	CreatedAt    time.Time          `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt    time.Time          `json:"updated_at" example:"2024-01-15T10:30:00Z"`
	LastScaledAt *time.Time         `json:"last_scaled_at,omitempty"`
}

func toPoolResponse(p *models.ResourcePool) PoolResponse {
	return PoolResponse{
		ID:           p.ID,
		Name:         p.Name,
		ResourceType: p.ResourceType,
		MinCapacity:  p.MinCapacity,
		MaxCapacity:  p.MaxCapacity,
		Status:       string(p.Status),
		Config:       p.Config,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		LastScaledAt: p.LastScaledAt,
	}
}

// List godoc
// @Summary List pools
// @Description Get all resource pools
// @Tags Pools
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of pools"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /pools [get]
func (h *PoolHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	pools, err := h.poolRepo.GetAll(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch pools"})
		return
	}

	response := make([]PoolResponse, len(pools))
	for i, pool := range pools {
		response[i] = toPoolResponse(pool)
	}

	c.JSON(http.StatusOK, gin.H{
		"pools": response,
		"count": len(response),
	})
}

// Get godoc
// @Summary Get pool
// @Description Get a specific resource pool by ID
// @Tags Pools
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pool ID"
// @Success 200 {object} PoolResponse "Pool details"
// @Failure 404 {object} map[string]string "Pool not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /pools/{id} [get]
func (h *PoolHandler) Get(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	pool, err := h.poolRepo.GetByID(ctx, id)
	if err != nil {
		if err == queries.ErrPoolNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "pool not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch pool"})
		return
	}

	c.JSON(http.StatusOK, toPoolResponse(pool))
}

// Create godoc
// @Summary Create pool
// @Description Create a new resource pool and start its scaling pipeline
// @Tags Pools
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePoolRequest true "Pool details"
// @Success 201 {object} PoolResponse "Pool created successfully"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 409 {object} map[string]string "Pool with this name already exists"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /pools [post]
func (h *PoolHandler) Create(c *gin.Context) {
	var req CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Name = validation.SanitizeString(req.Name)
	if err := validation.ValidatePoolName(req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validation.ValidateResourceType(req.ResourceType); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validation.ValidateCapacityRange(req.MinCapacity, req.MaxCapacity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// Check for duplicate name
	existing, err := h.poolRepo.GetByName(ctx, req.Name)
	if err == nil && existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "pool with this name already exists"})
		return
	}

	pool := models.NewResourcePool(req.Name, req.ResourceType, req.MinCapacity, req.MaxCapacity)
	pool.Config = req.Config

	if err := h.poolRepo.Create(ctx, pool); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create pool"})
		return
	}

	// Start the scaling pipeline for the new pool
	if h.poolManager != nil {
		h.createInSimulator(pool.ID, pool.MinCapacity)

		if err := h.poolManager.StartPool(pool, h.sourceFor(pool)); err != nil {
			// Pool is persisted; report the degraded state instead of failing
			c.JSON(http.StatusCreated, gin.H{
				"pool":    toPoolResponse(pool),
				"warning": "pool created but pipeline failed to start: " + err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusCreated, toPoolResponse(pool))
}

// Update godoc
// @Summary Update pool
// @Description Update an existing resource pool
// @Tags Pools
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pool ID"
// @Param request body UpdatePoolRequest true "Fields to update"
// @Success 200 {object} PoolResponse "Pool updated successfully"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 404 {object} map[string]string "Pool not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /pools/{id} [put]
func (h *PoolHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req UpdatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	pool, err := h.poolRepo.GetByID(ctx, id)
	if err != nil {
		if err == queries.ErrPoolNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "pool not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch pool"})
		return
	}

	if req.Name != "" {
		req.Name = validation.SanitizeString(req.Name)
		if err := validation.ValidatePoolName(req.Name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		pool.Name = req.Name
	}
	if req.MinCapacity != nil {
		pool.MinCapacity = *req.MinCapacity
	}
	if req.MaxCapacity != nil {
		pool.MaxCapacity = *req.MaxCapacity
	}
	if req.Status != "" {
		pool.Status = models.PoolStatus(req.Status)
	}
	if req.Config != nil {
		pool.Config = req.Config
	}

	if err := validation.ValidateCapacityRange(pool.MinCapacity, pool.MaxCapacity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.poolRepo.Update(ctx, pool); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update pool"})
		return
	}

	// Pausing stops the pipeline; re-activating restarts it.
	if h.poolManager != nil && req.Status != "" {
		switch pool.Status {
		case models.PoolStatusPaused:
			_ = h.poolManager.StopPool(pool.ID)
		case models.PoolStatusActive:
			if running, _ := h.poolManager.GetPoolStatus(pool.ID); !running {
				_ = h.poolManager.StartPool(pool, h.sourceFor(pool))
			}
		}
	}

	c.JSON(http.StatusOK, toPoolResponse(pool))
}

// Delete godoc
// @Summary Delete pool
// @Description Delete a resource pool and stop its scaling pipeline
// @Tags Pools
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pool ID"
// @Success 200 {object} map[string]string "Pool deleted successfully"
// @Failure 404 {object} map[string]string "Pool not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /pools/{id} [delete]
func (h *PoolHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.poolRepo.GetByID(ctx, id); err != nil {
		if err == queries.ErrPoolNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "pool not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch pool"})
		return
	}

	// Stop the pipeline first
	if h.poolManager != nil {
		_ = h.poolManager.StopPool(id) // Ignore error if not running
	}

	h.deleteFromSimulator(id)

	if err := h.poolRepo.Delete(ctx, id); err != nil {
		if err == queries.ErrPoolNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "pool not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete pool"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "pool deleted"})
}

// GetStatus godoc
// @Summary Get pool status
// @Description Report whether the scaling pipeline for a pool is running
// @Tags Pools
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pool ID"
// @Success 200 {object} map[string]interface{} "Pipeline status"
// @Failure 404 {object} map[string]string "Pool not found"
// @Router /pools/{id}/status [get]
func (h *PoolHandler) GetStatus(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	pool, err := h.poolRepo.GetByID(ctx, id)
	if err != nil {
		if err == queries.ErrPoolNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "pool not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch pool"})
		return
	}

	running := false
	if h.poolManager != nil {
		running, _ = h.poolManager.GetPoolStatus(id)
	}

	c.JSON(http.StatusOK, gin.H{
		"pool_id":          pool.ID,
		"status":           pool.Status,
		"pipeline_running": running,
	})
}

// sourceFor builds the metric source a pool's pipeline samples from,
// wrapping the HTTP backend in retry and circuit breaker protection.
func (h *PoolHandler) sourceFor(pool *models.ResourcePool) sampler.MetricsSource {
	endpoint := h.samplerCfg.Endpoint
	if pool.Config != nil && pool.Config.MetricsEndpoint != "" {
		endpoint = pool.Config.MetricsEndpoint
	}

	httpSource := sampler.NewHTTPSource(sampler.HTTPSourceConfig{
		Endpoint: endpoint,
		Timeout:  h.samplerCfg.Timeout,
	})

	return sampler.NewResilientSource(sampler.ResilientSourceConfig{
		Source:        httpSource,
		MaxFailures:   h.samplerCfg.CircuitBreaker.MaxFailures,
		Timeout:       h.samplerCfg.CircuitBreaker.Timeout,
		RetryAttempts: h.samplerCfg.RetryAttempts,
	})
}

// createInSimulator seeds the simulator with the pool's starting capacity
func (h *PoolHandler) createInSimulator(poolID string, capacity int) {
	payload, err := json.Marshal(map[string]interface{}{
		"capacity": capacity,
	})
	if err != nil {
		return
	}

	url := h.samplerCfg.Endpoint + "/pools/" + poolID
	resp, err := h.httpClient.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return
	}
	defer resp.Body.Close()
}

// deleteFromSimulator notifies the simulator to drop a pool
func (h *PoolHandler) deleteFromSimulator(poolID string) {
	url := h.samplerCfg.Endpoint + "/pools/" + poolID
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		return
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
}
