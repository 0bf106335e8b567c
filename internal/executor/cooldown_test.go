package executor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/riverbyte/capacity-engine/internal/executor"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

func TestCooldownStore_DirectionsAreIndependent(t *testing.T) {
	store := executor.NewCooldownStore(time.Minute, 2*time.Minute)

	store.Start("pool-a", models.DirectionScaleOut)

	active, remaining := store.Active("pool-a", models.DirectionScaleOut)
	assert.True(t, active)
	assert.Greater(t, remaining, time.Duration(0))

	// A scale-out cooldown must not block scale-in.
	active, _ = store.Active("pool-a", models.DirectionScaleIn)
	assert.False(t, active)

	// Other pools are unaffected.
	active, _ = store.Active("pool-b", models.DirectionScaleOut)
	assert.False(t, active)
}

func TestCooldownStore_Expiry(t *testing.T) {
	store := executor.NewCooldownStore(10*time.Millisecond, 10*time.Millisecond)

	store.Start("pool-a", models.DirectionScaleIn)
	time.Sleep(20 * time.Millisecond)

	active, remaining := store.Active("pool-a", models.DirectionScaleIn)
	assert.False(t, active)
	assert.Equal(t, time.Duration(0), remaining)
}

func TestCooldownStore_Clear(t *testing.T) {
	store := executor.NewCooldownStore(time.Minute, time.Minute)

	store.Start("pool-a", models.DirectionScaleOut)
	store.Start("pool-a", models.DirectionScaleIn)
	store.Clear("pool-a")

	active, _ := store.Active("pool-a", models.DirectionScaleOut)
	assert.False(t, active)
	active, _ = store.Active("pool-a", models.DirectionScaleIn)
	assert.False(t, active)
}

func TestCooldownStore_Snapshot(t *testing.T) {
	store := executor.NewCooldownStore(time.Minute, time.Minute)

	store.Start("pool-a", models.DirectionScaleOut)
	store.Start("pool-b", models.DirectionScaleIn)

	snapshot := store.Snapshot()
	assert.Len(t, snapshot, 2)
	for _, cd := range snapshot {
		assert.True(t, cd.ExpiresAt.After(time.Now()))
	}
}
