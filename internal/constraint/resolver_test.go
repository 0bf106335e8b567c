package constraint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverbyte/capacity-engine/internal/constraint"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

func newTestResolver() *constraint.Resolver {
	r := constraint.NewResolver([]models.CapacityConstraint{
		{
			ResourceType:          "compute",
			HardCeiling:           20,
			SoftCeiling:           10,
			MaxAttachmentsPerUnit: 4,
		},
		{
			ResourceType: "storage",
			HardCeiling:  50,
			SoftCeiling:  50,
		},
	})
	r.SetPoolLimits("compute", []constraint.PoolLimit{
		{PoolID: "pool-b", HardCeiling: 15},
		{PoolID: "pool-c", HardCeiling: 5},
	})
	return r
}

func TestResolver_WithinSoftCeiling(t *testing.T) {
	r := newTestResolver()

	res, err := r.Resolve(constraint.Request{
		ResourceType: "compute",
		PoolID:       "pool-a",
		Capacity:     8,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, res.FeasibleCapacity)
	assert.True(t, res.Accommodation.IsNone())
}

func TestResolver_SoftLimitRequest(t *testing.T) {
	r := newTestResolver()

	res, err := r.Resolve(constraint.Request{
		ResourceType: "compute",
		PoolID:       "pool-a",
		Capacity:     15,
	})
	require.NoError(t, err)

	// Granted immediately; the soft-limit increase is recorded, not awaited.
	assert.Equal(t, 15, res.FeasibleCapacity)
	require.NotNil(t, res.Accommodation)
	assert.Equal(t, models.AccommodationSoftLimitRequest, res.Accommodation.Type)
	assert.Equal(t, 15, res.Accommodation.SoftLimitTarget)
}

func TestResolver_MultiPoolSplit(t *testing.T) {
	r := newTestResolver()

	res, err := r.Resolve(constraint.Request{
		ResourceType: "compute",
		PoolID:       "pool-a",
		Capacity:     30,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Accommodation)
	assert.Equal(t, models.AccommodationMultiPoolSplit, res.Accommodation.Type)

	// Primary takes its ceiling, then alternates in registry order.
	require.Len(t, res.Accommodation.Splits, 2)
	assert.Equal(t, models.PoolSplit{PoolID: "pool-a", Capacity: 20}, res.Accommodation.Splits[0])
	assert.Equal(t, models.PoolSplit{PoolID: "pool-b", Capacity: 10}, res.Accommodation.Splits[1])

	var total int
	for _, split := range res.Accommodation.Splits {
		total += split.Capacity
	}
	assert.Equal(t, 30, total)
}

func TestResolver_Infeasible(t *testing.T) {
	r := newTestResolver()

	_, err := r.Resolve(constraint.Request{
		ResourceType: "compute",
		PoolID:       "pool-a",
		Capacity:     100,
	})
	assert.ErrorIs(t, err, constraint.ErrInfeasible)
}

func TestResolver_AttachmentSubLimitRaisesUnits(t *testing.T) {
	r := newTestResolver()

	// 5 units at 8 attachments each = 40 attachments. The per-unit cap of
	// 4 forces 10 units, which is within the hard ceiling but over soft.
	res, err := r.Resolve(constraint.Request{
		ResourceType:       "compute",
		PoolID:             "pool-a",
		Capacity:           5,
		AttachmentsPerUnit: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.RequestedCapacity)
	assert.Equal(t, 10, res.FeasibleCapacity)
	assert.True(t, res.Accommodation.IsNone())
}

func TestResolver_AttachmentCascadeIntoSplit(t *testing.T) {
	r := newTestResolver()

	// 15 units at 8 attachments = 120 attachments -> 30 units, over the
	// hard ceiling, so the sub-limit fix cascades into a split.
	res, err := r.Resolve(constraint.Request{
		ResourceType:       "compute",
		PoolID:             "pool-a",
		Capacity:           15,
		AttachmentsPerUnit: 8,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Accommodation)
	assert.Equal(t, models.AccommodationMultiPoolSplit, res.Accommodation.Type)
	assert.Equal(t, 30, res.FeasibleCapacity)
}

func TestResolver_UnknownResource(t *testing.T) {
	r := newTestResolver()

	_, err := r.Resolve(constraint.Request{ResourceType: "gpu", PoolID: "pool-a", Capacity: 1})
	assert.ErrorIs(t, err, constraint.ErrUnknownResource)
}

func TestResolver_UpdateSoftCeiling(t *testing.T) {
	r := newTestResolver()

	require.NoError(t, r.UpdateSoftCeiling("compute", 18))

	res, err := r.Resolve(constraint.Request{
		ResourceType: "compute",
		PoolID:       "pool-a",
		Capacity:     15,
	})
	require.NoError(t, err)
	assert.True(t, res.Accommodation.IsNone())

	assert.ErrorIs(t, r.UpdateSoftCeiling("gpu", 10), constraint.ErrUnknownResource)
}
