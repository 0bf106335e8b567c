package executor

import (
	"context"
	"errors"
)

var (
	ErrApplyFailed     = errors.New("capacity change failed")
	ErrPoolNotFound    = errors.New("pool not found")
	ErrStepTimeout     = errors.New("execution step timeout")
	ErrDecisionExpired = errors.New("decision expired before execution")
	ErrNotCancellable  = errors.New("execution is not in a cancellable state")
	ErrQueueFull       = errors.New("decision queue full")
)

// ApplyResult is the provider's verdict on a single capacity change.
// Rejected changes carry a machine-readable reason (rate limit,
// insufficient headroom, maintenance window).
type ApplyResult struct {
	PoolID       string
	NewCapacity  int
	Accepted     bool
	RejectReason string
}

// CapacityProvider is the boundary to whatever actually owns the pool:
// a cloud API, an orchestrator, or the in-process simulator.
type CapacityProvider interface {
	// GetCurrentCapacity returns the pool's present unit count.
	GetCurrentCapacity(ctx context.Context, poolID string) (int, error)

	// SetDesiredCapacity requests an absolute capacity. The provider may
	// reject the request without it being an error in transport terms.
	SetDesiredCapacity(ctx context.Context, poolID string, capacity int) (*ApplyResult, error)

	// Close releases resources
	Close() error
}
