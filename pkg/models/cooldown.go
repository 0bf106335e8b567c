package models

import "time"

// Cooldown suppresses further scaling in one direction for a pool until it
// expires. Overwritten, not appended, on each completed scaling action.
type Cooldown struct {
	PoolID    string    `json:"pool_id"`
	Direction Direction `json:"direction"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *Cooldown) Active(now time.Time) bool {
	return c != nil && now.Before(c.ExpiresAt)
}

func (c *Cooldown) Remaining(now time.Time) time.Duration {
	if !c.Active(now) {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
