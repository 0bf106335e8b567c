package executor

import (
	"sync"
	"time"

	"github.com/riverbyte/capacity-engine/pkg/models"
)

type cooldownKey struct {
	poolID    string
	direction models.Direction
}

// CooldownStore tracks per-pool, per-direction cooldowns. A scale-out
// cooldown never blocks a scale-in and vice versa.
type CooldownStore struct {
	cooldowns map[cooldownKey]time.Time
	scaleOut  time.Duration
	scaleIn   time.Duration
	mu        sync.RWMutex
}

func NewCooldownStore(scaleOut, scaleIn time.Duration) *CooldownStore {
	if scaleOut == 0 {
		scaleOut = 5 * time.Minute
	}
	if scaleIn == 0 {
		scaleIn = 10 * time.Minute
	}
	return &CooldownStore{
		cooldowns: make(map[cooldownKey]time.Time),
		scaleOut:  scaleOut,
		scaleIn:   scaleIn,
	}
}

// Active reports whether the pool is still cooling down in the given
// direction, and how long remains.
func (s *CooldownStore) Active(poolID string, direction models.Direction) (bool, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expires, exists := s.cooldowns[cooldownKey{poolID, direction}]
	if !exists {
		return false, 0
	}
	remaining := time.Until(expires)
	if remaining <= 0 {
		return false, 0
	}
	return true, remaining
}

// Start arms the cooldown for the direction just executed. Callers must
// invoke this under the same lock that marks the step complete, so no
// later cycle can observe a completed step without its cooldown.
func (s *CooldownStore) Start(poolID string, direction models.Direction) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.scaleOut
	if direction == models.DirectionScaleIn {
		d = s.scaleIn
	}
	expires := time.Now().Add(d)
	s.cooldowns[cooldownKey{poolID, direction}] = expires
	return expires
}

func (s *CooldownStore) Clear(poolID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cooldowns, cooldownKey{poolID, models.DirectionScaleOut})
	delete(s.cooldowns, cooldownKey{poolID, models.DirectionScaleIn})
}

// Snapshot returns the currently active cooldowns.
func (s *CooldownStore) Snapshot() []models.Cooldown {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	out := make([]models.Cooldown, 0, len(s.cooldowns))
	for key, expires := range s.cooldowns {
		if expires.After(now) {
			out = append(out, models.Cooldown{
				PoolID:    key.poolID,
				Direction: key.direction,
				ExpiresAt: expires,
			})
		}
	}
	return out
}
