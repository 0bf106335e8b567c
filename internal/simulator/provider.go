package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/riverbyte/capacity-engine/internal/executor"
)

// Provider exposes the simulator's pools as a capacity provider, so the
// executor can run complete scaling cycles without a real cloud behind
// it. A per-pool change rate limit mimics provider-side pushback.
type Provider struct {
	sim       *Simulator
	maxPerMin int
	changes   map[string][]time.Time
	mu        sync.Mutex
}

func NewProvider(sim *Simulator, maxChangesPerMinute int) *Provider {
	if maxChangesPerMinute <= 0 {
		maxChangesPerMinute = 10
	}
	return &Provider{
		sim:       sim,
		maxPerMin: maxChangesPerMinute,
		changes:   make(map[string][]time.Time),
	}
}

func (p *Provider) GetCurrentCapacity(ctx context.Context, poolID string) (int, error) {
	pool, exists := p.sim.GetPool(poolID)
	if !exists {
		return 0, executor.ErrPoolNotFound
	}
	return pool.Capacity(), nil
}

func (p *Provider) SetDesiredCapacity(ctx context.Context, poolID string, capacity int) (*executor.ApplyResult, error) {
	pool, exists := p.sim.GetPool(poolID)
	if !exists {
		return nil, executor.ErrPoolNotFound
	}

	if !p.allowChange(poolID) {
		return &executor.ApplyResult{
			PoolID:       poolID,
			NewCapacity:  pool.Capacity(),
			Accepted:     false,
			RejectReason: "rate_limit_exceeded",
		}, nil
	}

	pool.SetCapacity(capacity)
	return &executor.ApplyResult{
		PoolID:      poolID,
		NewCapacity: capacity,
		Accepted:    true,
	}, nil
}

func (p *Provider) allowChange(poolID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-time.Minute)
	recent := p.changes[poolID][:0]
	for _, at := range p.changes[poolID] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}

	if len(recent) >= p.maxPerMin {
		p.changes[poolID] = recent
		return false
	}

	p.changes[poolID] = append(recent, time.Now())
	return true
}

func (p *Provider) Close() error {
	return nil
}
