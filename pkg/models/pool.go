package models

import (
	"encoding/json"
	"time"
)

type PoolStatus string

const (
	PoolStatusActive PoolStatus = "active"
	PoolStatusPaused PoolStatus = "paused"
	PoolStatusError  PoolStatus = "error"
)

type PoolConfig struct {
	MetricsEndpoint   string  `json:"metrics_endpoint,omitempty"`
	TargetUtilization float64 `json:"target_utilization,omitempty"`
}

// ResourcePool is a logical group of scalable capacity units.
type ResourcePool struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	ResourceType string      `json:"resource_type"`
	MinCapacity  int         `json:"min_capacity"`
	MaxCapacity  int         `json:"max_capacity"`
	Status       PoolStatus  `json:"status"`
	Config       *PoolConfig `json:"config,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	LastScaledAt *time.Time  `json:"last_scaled_at,omitempty"`
}

func NewResourcePool(name, resourceType string, minCapacity, maxCapacity int) *ResourcePool {
	now := time.Now()
	return &ResourcePool{
		ID:           NewUUID(),
		Name:         name,
		ResourceType: resourceType,
		MinCapacity:  minCapacity,
		MaxCapacity:  maxCapacity,
		Status:       PoolStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (p *ResourcePool) IsActive() bool {
	return p.Status == PoolStatusActive
}

func (p *ResourcePool) ConfigJSON() ([]byte, error) {
	if p.Config == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Config)
}

func (p *ResourcePool) ParseConfig(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	p.Config = &PoolConfig{}
	return json.Unmarshal(data, p.Config)
}
