package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/riverbyte/capacity-engine/internal/constraint"
)

type ConstraintHandler struct {
	resolver *constraint.Resolver
}

func NewConstraintHandler(resolver *constraint.Resolver) *ConstraintHandler {
	return &ConstraintHandler{resolver: resolver}
}

type RaiseSoftCeilingRequest struct {
	SoftCeiling int `json:"soft_ceiling" binding:"required,min=1" example:"120"`
}

// Get godoc
// @Summary Get constraint
// @Description Get the capacity constraint for a resource type
// @Tags Constraints
// @Produce json
// @Security BearerAuth
// @Param type path string true "Resource type"
// @Success 200 {object} map[string]interface{} "Constraint details"
// @Failure 404 {object} map[string]string "Unknown resource type"
// @Router /constraints/{type} [get]
func (h *ConstraintHandler) Get(c *gin.Context) {
	resourceType := c.Param("type")

	cons, ok := h.resolver.Constraint(resourceType)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown resource type"})
		return
	}

	c.JSON(http.StatusOK, cons)
}

// RaiseSoftCeiling godoc
// @Summary Raise soft ceiling
// @Description Grant a soft limit increase for a resource type, unblocking accommodated decisions
// @Tags Constraints
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "Resource type"
// @Param request body RaiseSoftCeilingRequest true "New soft ceiling"
// @Success 200 {object} map[string]interface{} "Updated constraint"
// @Failure 400 {object} map[string]string "Invalid ceiling"
// @Router /constraints/{type}/soft-ceiling [put]
func (h *ConstraintHandler) RaiseSoftCeiling(c *gin.Context) {
	resourceType := c.Param("type")

	var req RaiseSoftCeilingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.resolver.UpdateSoftCeiling(resourceType, req.SoftCeiling); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cons, _ := h.resolver.Constraint(resourceType)
	c.JSON(http.StatusOK, cons)
}
