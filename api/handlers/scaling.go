package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/riverbyte/capacity-engine/internal/executor"
	"github.com/riverbyte/capacity-engine/pkg/database/queries"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type ScalingHandler struct {
	forecastRepo *queries.ForecastRepository
	decisionRepo *queries.DecisionRepository
	executor     *executor.Executor
}

func NewScalingHandler(forecastRepo *queries.ForecastRepository, decisionRepo *queries.DecisionRepository, exec *executor.Executor) *ScalingHandler {
	return &ScalingHandler{
		forecastRepo: forecastRepo,
		decisionRepo: decisionRepo,
		executor:     exec,
	}
}

func parseLimit(c *gin.Context) int {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit
}

// GetForecasts godoc
// @Summary List forecasts
// @Description Get recent demand forecasts for a pool
// @Tags Scaling
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pool ID"
// @Param limit query int false "Maximum results" default(50)
// @Success 200 {object} map[string]interface{} "Recent forecasts"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /pools/{id}/forecasts [get]
func (h *ScalingHandler) GetForecasts(c *gin.Context) {
	poolID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	forecasts, err := h.forecastRepo.GetRecent(ctx, poolID, parseLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch forecasts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pool_id":   poolID,
		"forecasts": forecasts,
		"count":     len(forecasts),
	})
}

// GetDecisions godoc
// @Summary List decisions
// @Description Get recent scaling decisions for a pool with their outcomes
// @Tags Scaling
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pool ID"
// @Param limit query int false "Maximum results" default(50)
// @Success 200 {object} map[string]interface{} "Recent decisions"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /pools/{id}/decisions [get]
func (h *ScalingHandler) GetDecisions(c *gin.Context) {
	poolID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	records, err := h.decisionRepo.GetRecent(ctx, poolID, parseLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch decisions"})
		return
	}

	response := make([]gin.H, len(records))
	for i, record := range records {
		response[i] = decisionRecordResponse(record)
	}

	c.JSON(http.StatusOK, gin.H{
		"pool_id":   poolID,
		"decisions": response,
		"count":     len(response),
	})
}

// GetDecision godoc
// @Summary Get decision
// @Description Get a scaling decision by ID including its execution steps
// @Tags Scaling
// @Produce json
// @Security BearerAuth
// @Param id path string true "Decision ID"
// @Success 200 {object} map[string]interface{} "Decision with steps"
// @Failure 404 {object} map[string]string "Decision not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /decisions/{id} [get]
func (h *ScalingHandler) GetDecision(c *gin.Context) {
	id := c.Param("id")

	// Prefer the executor's live view; it has step state the database
	// only sees on flush.
	if exec, ok := h.executor.Get(id); ok {
		c.JSON(http.StatusOK, gin.H{
			"decision": exec.Decision,
			"state":    exec.State,
			"steps":    exec.Steps,
			"failure":  exec.Failure,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	record, err := h.decisionRepo.GetByID(ctx, id)
	if err != nil {
		if err == queries.ErrDecisionNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "decision not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch decision"})
		return
	}

	steps, err := h.decisionRepo.GetSteps(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch steps"})
		return
	}

	resp := decisionRecordResponse(record)
	resp["steps"] = steps
	c.JSON(http.StatusOK, resp)
}

// CancelDecision godoc
// @Summary Cancel decision
// @Description Cancel a queued scaling decision. Only pending and blocked decisions can be cancelled
// @Tags Scaling
// @Produce json
// @Security BearerAuth
// @Param id path string true "Decision ID"
// @Success 200 {object} map[string]string "Decision cancelled"
// @Failure 404 {object} map[string]string "Decision not found"
// @Failure 409 {object} map[string]string "Decision is not cancellable"
// @Router /decisions/{id}/cancel [post]
func (h *ScalingHandler) CancelDecision(c *gin.Context) {
	id := c.Param("id")

	if err := h.executor.Cancel(id); err != nil {
		switch err {
		case executor.ErrNotCancellable:
			c.JSON(http.StatusConflict, gin.H{"error": "decision is not cancellable"})
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": "decision not found"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "decision cancelled"})
}

// GetQueue godoc
// @Summary Get execution queue
// @Description Get the pending execution queue depth for a pool
// @Tags Scaling
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pool ID"
// @Success 200 {object} map[string]interface{} "Queue depth"
// @Router /pools/{id}/queue [get]
func (h *ScalingHandler) GetQueue(c *gin.Context) {
	poolID := c.Param("id")

	c.JSON(http.StatusOK, gin.H{
		"pool_id":     poolID,
		"queue_depth": h.executor.QueueDepth(poolID),
	})
}

// GetCooldowns godoc
// @Summary List cooldowns
// @Description Get all active scaling cooldowns
// @Tags Scaling
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Active cooldowns"
// @Router /cooldowns [get]
func (h *ScalingHandler) GetCooldowns(c *gin.Context) {
	cooldowns := h.executor.Cooldowns()

	now := time.Now()
	response := make([]gin.H, 0, len(cooldowns))
	for i := range cooldowns {
		cd := cooldowns[i]
		response = append(response, gin.H{
			"pool_id":           cd.PoolID,
			"direction":         cd.Direction,
			"expires_at":        cd.ExpiresAt,
			"remaining_seconds": int(cd.Remaining(now).Seconds()),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"cooldowns": response,
		"count":     len(response),
	})
}

func decisionRecordResponse(record *queries.DecisionRecord) gin.H {
	resp := gin.H{
		"decision": record.Decision,
		"state":    record.State,
	}
	if record.Failure != "" {
		resp["failure"] = record.Failure
	}
	if record.FinishedAt != nil {
		resp["finished_at"] = record.FinishedAt
	}
	return resp
}
