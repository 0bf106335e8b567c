package models

// CapacityConstraint holds the ceilings for one resource type. Reference
// data: loaded at startup or refreshed periodically, never mutated by the
// decision engine itself.
type CapacityConstraint struct {
	ResourceType          string `json:"resource_type"`
	HardCeiling           int    `json:"hard_ceiling"`
	SoftCeiling           int    `json:"soft_ceiling"`
	MaxAttachmentsPerUnit int    `json:"max_attachments_per_unit,omitempty"`
}

type AccommodationType string

const (
	AccommodationNone             AccommodationType = "none"
	AccommodationSoftLimitRequest AccommodationType = "soft_limit_increase"
	AccommodationMultiPoolSplit   AccommodationType = "multi_pool_split"
)

// PoolSplit is one pool's share of a capacity request that exceeded a
// single pool's hard ceiling.
type PoolSplit struct {
	PoolID   string `json:"pool_id"`
	Capacity int    `json:"capacity"`
}

type Accommodation struct {
	Type AccommodationType `json:"type"`
	// Splits lists per-pool allocations when Type is multi_pool_split.
	Splits []PoolSplit `json:"splits,omitempty"`
	// SoftLimitTarget is the requested new soft ceiling when Type is
	// soft_limit_increase. The request is asynchronous; the resolver only
	// records it.
	SoftLimitTarget int `json:"soft_limit_target,omitempty"`
}

func (a *Accommodation) IsNone() bool {
	return a == nil || a.Type == AccommodationNone
}

// Resolution is the resolver's answer for a requested capacity: what is
// feasible (in aggregate, for splits) and how to get there.
type Resolution struct {
	ResourceType      string         `json:"resource_type"`
	RequestedCapacity int            `json:"requested_capacity"`
	FeasibleCapacity  int            `json:"feasible_capacity"`
	Accommodation     *Accommodation `json:"accommodation,omitempty"`
}
