package executor_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverbyte/capacity-engine/internal/executor"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

// fakeProvider scripts provider behavior per call: the first rejections
// calls push back, a failOnCall index returns a hard error, everything
// else is accepted.
type fakeProvider struct {
	mu         sync.Mutex
	calls      int
	targets    []int
	rejections int
	failOnCall int
}

func (p *fakeProvider) GetCurrentCapacity(ctx context.Context, poolID string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.targets) == 0 {
		return 0, nil
	}
	return p.targets[len(p.targets)-1], nil
}

func (p *fakeProvider) SetDesiredCapacity(ctx context.Context, poolID string, capacity int) (*executor.ApplyResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.rejections > 0 {
		p.rejections--
		return &executor.ApplyResult{
			PoolID:       poolID,
			Accepted:     false,
			RejectReason: "rate_limit_exceeded",
		}, nil
	}
	if p.failOnCall > 0 && p.calls == p.failOnCall {
		return nil, errors.New("provider unavailable")
	}

	p.targets = append(p.targets, capacity)
	return &executor.ApplyResult{PoolID: poolID, NewCapacity: capacity, Accepted: true}, nil
}

func (p *fakeProvider) Close() error { return nil }

func (p *fakeProvider) appliedTargets() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.targets))
	copy(out, p.targets)
	return out
}

func newTestExecutor(provider *fakeProvider, cooldowns *executor.CooldownStore) *executor.Executor {
	return executor.New(executor.Config{
		MaxChangePerStep: 3,
		StepInterval:     time.Millisecond,
		StepTimeout:      time.Second,
		DecisionTTL:      time.Minute,
		QueueLimit:       8,
	}, provider, cooldowns, executor.Callbacks{})
}

func waitForState(t *testing.T, exec *executor.Executor, decisionID string, state models.ExecutionState) *models.Execution {
	t.Helper()

	var result *models.Execution
	require.Eventually(t, func() bool {
		e, ok := exec.Get(decisionID)
		if !ok || e.State != state {
			return false
		}
		result = e
		return true
	}, 2*time.Second, 5*time.Millisecond)
	return result
}

func TestExecutor_RunsStepsToCompletion(t *testing.T) {
	provider := &fakeProvider{}
	cooldowns := executor.NewCooldownStore(time.Minute, time.Minute)
	exec := newTestExecutor(provider, cooldowns)

	decision := decisionFor(5, 12)
	_, err := exec.Submit(decision)
	require.NoError(t, err)

	exec.Tick(context.Background())
	result := waitForState(t, exec, decision.DecisionID, models.StateCompleted)

	// Each step moves capacity by at most 3 and lands exactly on target.
	assert.Equal(t, []int{8, 11, 12}, provider.appliedTargets())
	assert.Equal(t, 7, result.AppliedDelta())
	assert.Equal(t, 0, result.RemainingSteps())
	require.NotNil(t, result.FinishedAt)

	// Completion arms the cooldown for the executed direction.
	active, _ := cooldowns.Active("pool-a", models.DirectionScaleOut)
	assert.True(t, active)
}

func TestExecutor_CooldownBlocksQueuedDecision(t *testing.T) {
	provider := &fakeProvider{}
	cooldowns := executor.NewCooldownStore(time.Minute, time.Minute)
	exec := newTestExecutor(provider, cooldowns)

	first := decisionFor(5, 6)
	_, err := exec.Submit(first)
	require.NoError(t, err)

	exec.Tick(context.Background())
	waitForState(t, exec, first.DecisionID, models.StateCompleted)

	second := decisionFor(6, 8)
	_, err = exec.Submit(second)
	require.NoError(t, err)

	exec.Tick(context.Background())
	blocked := waitForState(t, exec, second.DecisionID, models.StateBlocked)
	assert.Equal(t, 0, blocked.AppliedDelta())
	assert.Equal(t, 1, exec.QueueDepth("pool-a"))

	// Clearing the cooldown lets the next tick run it.
	cooldowns.Clear("pool-a")
	exec.Tick(context.Background())
	waitForState(t, exec, second.DecisionID, models.StateCompleted)
}

func TestExecutor_ProviderRejectionBlocksAndRetries(t *testing.T) {
	provider := &fakeProvider{rejections: 1}
	cooldowns := executor.NewCooldownStore(time.Minute, time.Minute)
	exec := newTestExecutor(provider, cooldowns)

	decision := decisionFor(5, 7)
	_, err := exec.Submit(decision)
	require.NoError(t, err)

	exec.Tick(context.Background())
	blocked := waitForState(t, exec, decision.DecisionID, models.StateBlocked)

	// Pushback is not a failure: nothing applied, decision back at the head.
	assert.Equal(t, 0, blocked.AppliedDelta())
	assert.Equal(t, 1, exec.QueueDepth("pool-a"))

	// The provider recovers; the same execution resumes and completes.
	exec.Tick(context.Background())
	result := waitForState(t, exec, decision.DecisionID, models.StateCompleted)
	assert.Equal(t, 2, result.AppliedDelta())
}

func TestExecutor_FailureRetainsAppliedSteps(t *testing.T) {
	provider := &fakeProvider{failOnCall: 2}
	cooldowns := executor.NewCooldownStore(time.Minute, time.Minute)
	exec := newTestExecutor(provider, cooldowns)

	decision := decisionFor(5, 12)
	_, err := exec.Submit(decision)
	require.NoError(t, err)

	exec.Tick(context.Background())
	result := waitForState(t, exec, decision.DecisionID, models.StateFailed)

	// The first step stays applied; no rollback.
	assert.Equal(t, 3, result.AppliedDelta())
	assert.Equal(t, []int{8}, provider.appliedTargets())
	assert.Contains(t, result.Failure, "provider unavailable")

	// A failed run must not arm the cooldown.
	active, _ := cooldowns.Active("pool-a", models.DirectionScaleOut)
	assert.False(t, active)
}

func TestExecutor_ExpiresStaleDecisions(t *testing.T) {
	provider := &fakeProvider{}
	exec := executor.New(executor.Config{
		MaxChangePerStep: 3,
		StepInterval:     time.Millisecond,
		DecisionTTL:      10 * time.Millisecond,
	}, provider, executor.NewCooldownStore(time.Minute, time.Minute), executor.Callbacks{})

	decision := decisionFor(5, 8)
	decision.CreatedAt = time.Now().Add(-time.Minute)
	_, err := exec.Submit(decision)
	require.NoError(t, err)

	exec.Tick(context.Background())
	result := waitForState(t, exec, decision.DecisionID, models.StateExpired)
	assert.Equal(t, 0, result.AppliedDelta())
	assert.Empty(t, provider.appliedTargets())
}

func TestExecutor_Cancel(t *testing.T) {
	provider := &fakeProvider{}
	exec := newTestExecutor(provider, executor.NewCooldownStore(time.Minute, time.Minute))

	pending := decisionFor(5, 8)
	_, err := exec.Submit(pending)
	require.NoError(t, err)

	// Pending decisions cancel cleanly.
	require.NoError(t, exec.Cancel(pending.DecisionID))
	result, ok := exec.Get(pending.DecisionID)
	require.True(t, ok)
	assert.Equal(t, models.StateCancelled, result.State)

	// Finished decisions do not.
	done := decisionFor(5, 6)
	_, err = exec.Submit(done)
	require.NoError(t, err)
	exec.Tick(context.Background())
	waitForState(t, exec, done.DecisionID, models.StateCompleted)
	assert.ErrorIs(t, exec.Cancel(done.DecisionID), executor.ErrNotCancellable)

	// Unknown decisions report as such.
	assert.ErrorIs(t, exec.Cancel("no-such-decision"), executor.ErrPoolNotFound)
}

func TestExecutor_GetReturnsSnapshot(t *testing.T) {
	provider := &fakeProvider{}
	exec := newTestExecutor(provider, executor.NewCooldownStore(time.Minute, time.Minute))

	decision := decisionFor(5, 12)
	submitted, err := exec.Submit(decision)
	require.NoError(t, err)

	// Writes to a returned execution must not reach the executor's copy.
	submitted.State = models.StateFailed
	submitted.Steps[0].Result = models.StepFailed

	got, ok := exec.Get(decision.DecisionID)
	require.True(t, ok)
	assert.Equal(t, models.StatePending, got.State)
	assert.Equal(t, models.StepPending, got.Steps[0].Result)

	// Two reads never alias the same step slice.
	again, ok := exec.Get(decision.DecisionID)
	require.True(t, ok)
	got.Steps[1].Result = models.StepApplied
	assert.Equal(t, models.StepPending, again.Steps[1].Result)
}

func TestExecutor_ConcurrentReadsDuringRun(t *testing.T) {
	provider := &fakeProvider{}
	exec := newTestExecutor(provider, executor.NewCooldownStore(time.Minute, time.Minute))

	decision := decisionFor(5, 17)
	_, err := exec.Submit(decision)
	require.NoError(t, err)

	// Hammer Get while the runner goroutine works through the steps. Every
	// read must marshal cleanly and observe internally consistent state.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				e, ok := exec.Get(decision.DecisionID)
				if !ok {
					continue
				}
				if _, err := json.Marshal(e); err != nil {
					t.Errorf("marshal during run: %v", err)
					return
				}
				if e.State == models.StateCompleted && e.RemainingSteps() != 0 {
					t.Error("completed execution with pending steps")
					return
				}
			}
		}()
	}

	exec.Tick(context.Background())
	result := waitForState(t, exec, decision.DecisionID, models.StateCompleted)
	close(stop)
	wg.Wait()

	assert.Equal(t, 12, result.AppliedDelta())
}

func TestExecutor_QueueLimit(t *testing.T) {
	provider := &fakeProvider{}
	exec := executor.New(executor.Config{
		QueueLimit: 1,
	}, provider, executor.NewCooldownStore(time.Minute, time.Minute), executor.Callbacks{})

	_, err := exec.Submit(decisionFor(5, 8))
	require.NoError(t, err)

	_, err = exec.Submit(decisionFor(8, 10))
	assert.ErrorIs(t, err, executor.ErrQueueFull)
}
