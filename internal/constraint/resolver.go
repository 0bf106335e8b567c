package constraint

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/riverbyte/capacity-engine/internal/logger"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

var (
	// ErrInfeasible means the request cannot be satisfied even with a
	// multi-pool split: the aggregate hard ceiling is exhausted.
	ErrInfeasible = errors.New("requested capacity infeasible under hard ceilings")

	ErrUnknownResource = errors.New("unknown resource type")
)

// PoolLimit is one pool's share of the registry used for split planning.
type PoolLimit struct {
	PoolID      string
	HardCeiling int
}

// Request is a capacity ask to resolve. AttachmentsPerUnit is optional;
// when it exceeds the resource's per-unit sub-limit the unit count is
// raised to honor the sub-limit rather than dropping it.
type Request struct {
	ResourceType       string
	PoolID             string
	Capacity           int
	AttachmentsPerUnit int
}

// Resolver maps desired capacities onto feasible ones under hard/soft
// ceilings and per-unit sub-limits. It is a deterministic planning step:
// it never calls the provider and never retries anything.
type Resolver struct {
	mu          sync.RWMutex
	constraints map[string]models.CapacityConstraint
	pools       map[string][]PoolLimit
}

func NewResolver(constraints []models.CapacityConstraint) *Resolver {
	r := &Resolver{
		constraints: make(map[string]models.CapacityConstraint),
		pools:       make(map[string][]PoolLimit),
	}
	for _, c := range constraints {
		r.constraints[c.ResourceType] = c
	}
	return r
}

// SetPoolLimits replaces the split-planning registry for a resource type.
// Called at startup and on periodic refresh, never mid-resolution.
func (r *Resolver) SetPoolLimits(resourceType string, limits []PoolLimit) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := make([]PoolLimit, len(limits))
	copy(sorted, limits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PoolID < sorted[j].PoolID })
	r.pools[resourceType] = sorted
}

func (r *Resolver) UpdateConstraint(c models.CapacityConstraint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constraints[c.ResourceType] = c
}

// UpdateSoftCeiling records the outcome of an external soft-limit request.
func (r *Resolver) UpdateSoftCeiling(resourceType string, newCeiling int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.constraints[resourceType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownResource, resourceType)
	}
	c.SoftCeiling = newCeiling
	r.constraints[resourceType] = c
	return nil
}

func (r *Resolver) Constraint(resourceType string) (models.CapacityConstraint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.constraints[resourceType]
	return c, ok
}

// Resolve applies the ceiling rules in order:
//  1. within soft and hard ceiling: grant as-is.
//  2. over soft, within hard: grant, flag a pending soft-limit increase.
//  3. over hard: split across additional pools, each respecting its own
//     hard ceiling.
//  4. per-unit sub-limit violations raise the unit count first, which may
//     cascade into rule 3.
func (r *Resolver) Resolve(req Request) (*models.Resolution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.constraints[req.ResourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, req.ResourceType)
	}

	units := req.Capacity
	if req.AttachmentsPerUnit > 0 && c.MaxAttachmentsPerUnit > 0 &&
		req.AttachmentsPerUnit > c.MaxAttachmentsPerUnit {
		// Sub-limit would be violated: spread the same attachment total
		// over more units instead of dropping the limit.
		totalAttachments := req.Capacity * req.AttachmentsPerUnit
		units = ceilDiv(totalAttachments, c.MaxAttachmentsPerUnit)
	}

	resolution := &models.Resolution{
		ResourceType:      req.ResourceType,
		RequestedCapacity: req.Capacity,
		FeasibleCapacity:  units,
	}

	switch {
	case units <= c.SoftCeiling && units <= c.HardCeiling:
		resolution.Accommodation = &models.Accommodation{Type: models.AccommodationNone}

	case units <= c.HardCeiling:
		// The soft-limit increase is an external asynchronous action.
		// Record it and return immediately; never block on it.
		resolution.Accommodation = &models.Accommodation{
			Type:            models.AccommodationSoftLimitRequest,
			SoftLimitTarget: units,
		}

	default:
		splits, err := r.planSplit(req, units, c)
		if err != nil {
			return nil, err
		}
		resolution.Accommodation = &models.Accommodation{
			Type:   models.AccommodationMultiPoolSplit,
			Splits: splits,
		}
	}

	return resolution, nil
}

// planSplit distributes units across the primary pool plus alternates,
// greedily in registry order, each allocation capped by that pool's own
// hard ceiling.
func (r *Resolver) planSplit(req Request, units int, c models.CapacityConstraint) ([]models.PoolSplit, error) {
	splits := []models.PoolSplit{{PoolID: req.PoolID, Capacity: min(units, c.HardCeiling)}}
	remaining := units - splits[0].Capacity

	for _, limit := range r.pools[req.ResourceType] {
		if remaining == 0 {
			break
		}
		if limit.PoolID == req.PoolID || limit.HardCeiling <= 0 {
			continue
		}
		take := min(remaining, limit.HardCeiling)
		splits = append(splits, models.PoolSplit{PoolID: limit.PoolID, Capacity: take})
		remaining -= take
	}

	if remaining > 0 {
		logger.WithPool(req.PoolID).Warnf(
			"Cannot place %d of %d requested units for %s", remaining, units, req.ResourceType,
		)
		return nil, fmt.Errorf("%w: %d units unplaceable for %s",
			ErrInfeasible, remaining, req.ResourceType)
	}

	return splits, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
