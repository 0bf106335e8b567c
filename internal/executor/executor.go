package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riverbyte/capacity-engine/internal/logger"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

type Config struct {
	MaxChangePerStep int
	StepInterval     time.Duration
	StepTimeout      time.Duration
	DecisionTTL      time.Duration
	QueueLimit       int
	HistoryLimit     int
}

// Callbacks mirror execution lifecycle transitions out to whoever is
// listening (event bus, persistence, websocket broadcasts). They are
// invoked on their own goroutines and must not block the executor.
type Callbacks struct {
	OnStateChanged func(exec *models.Execution, oldState, newState models.ExecutionState)
	OnStepApplied  func(exec *models.Execution, step *models.ExecutionStep)
}

// Executor applies scaling decisions through a capacity provider. Each
// pool has a FIFO decision queue and at most one in-flight execution;
// decisions for different pools run independently.
type Executor struct {
	config    Config
	provider  CapacityProvider
	cooldowns *CooldownStore
	callbacks Callbacks

	queues   map[string][]*models.Execution
	inflight map[string]*models.Execution
	history  map[string]*models.Execution // decisionID -> finished execution
	order    []string                     // finished decision IDs, oldest first
	mu       sync.Mutex

	wg sync.WaitGroup
}

func New(cfg Config, provider CapacityProvider, cooldowns *CooldownStore, callbacks Callbacks) *Executor {
	if cfg.MaxChangePerStep <= 0 {
		cfg.MaxChangePerStep = 3
	}
	if cfg.StepInterval == 0 {
		cfg.StepInterval = 10 * time.Second
	}
	if cfg.StepTimeout == 0 {
		cfg.StepTimeout = 30 * time.Second
	}
	if cfg.DecisionTTL == 0 {
		cfg.DecisionTTL = 15 * time.Minute
	}
	if cfg.QueueLimit <= 0 {
		cfg.QueueLimit = 32
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 256
	}
	return &Executor{
		config:    cfg,
		provider:  provider,
		cooldowns: cooldowns,
		callbacks: callbacks,
		queues:    make(map[string][]*models.Execution),
		inflight:  make(map[string]*models.Execution),
		history:   make(map[string]*models.Execution),
	}
}

// Submit enqueues a decision for execution. Decisions for the same pool
// are executed strictly in submission order.
func (e *Executor) Submit(decision *models.ScalingDecision) (*models.Execution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queues[decision.PoolID]) >= e.config.QueueLimit {
		return nil, ErrQueueFull
	}

	exec := &models.Execution{
		Decision: decision,
		Steps:    PlanSteps(decision, e.config.MaxChangePerStep, e.config.StepInterval),
		State:    models.StatePending,
	}
	e.queues[decision.PoolID] = append(e.queues[decision.PoolID], exec)

	logger.WithDecision(decision.DecisionID).Infof(
		"Execution queued for pool %s: %d -> %d in %d step(s)",
		decision.PoolID, decision.CurrentCapacity, decision.TargetCapacity, len(exec.Steps),
	)

	return cloneLocked(exec), nil
}

// Cancel aborts a queued execution. Only PENDING and BLOCKED executions
// can be cancelled; once a step has been applied the execution must run
// to a terminal state on its own.
func (e *Executor) Cancel(decisionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for poolID, queue := range e.queues {
		for i, exec := range queue {
			if exec.Decision.DecisionID != decisionID {
				continue
			}
			if exec.State != models.StatePending && exec.State != models.StateBlocked {
				return ErrNotCancellable
			}
			e.queues[poolID] = append(queue[:i], queue[i+1:]...)
			e.finishLocked(exec, models.StateCancelled, "")
			return nil
		}
	}
	if _, running := e.findInflightLocked(decisionID); running {
		return ErrNotCancellable
	}
	if _, finished := e.history[decisionID]; finished {
		return ErrNotCancellable
	}
	return ErrPoolNotFound
}

// Tick advances every pool queue once: expires stale decisions, blocks
// on active cooldowns, and launches the next eligible execution. The
// orchestrator calls this each cycle.
func (e *Executor) Tick(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for poolID := range e.queues {
		e.advancePoolLocked(ctx, poolID)
	}
}

func (e *Executor) advancePoolLocked(ctx context.Context, poolID string) {
	if _, busy := e.inflight[poolID]; busy {
		return
	}

	for len(e.queues[poolID]) > 0 {
		exec := e.queues[poolID][0]
		decision := exec.Decision

		if time.Since(decision.CreatedAt) > e.config.DecisionTTL {
			e.queues[poolID] = e.queues[poolID][1:]
			e.finishLocked(exec, models.StateExpired, ErrDecisionExpired.Error())
			continue
		}

		if active, remaining := e.cooldowns.Active(poolID, decision.Direction()); active {
			if exec.State != models.StateBlocked {
				e.transitionLocked(exec, models.StateBlocked)
				logger.WithDecision(decision.DecisionID).Infof(
					"Execution blocked: %s cooldown on pool %s (%s remaining)",
					decision.Direction(), poolID, remaining.Round(time.Second),
				)
			}
			return
		}

		e.queues[poolID] = e.queues[poolID][1:]
		e.inflight[poolID] = exec
		e.transitionLocked(exec, models.StateInProgress)
		now := time.Now()
		exec.StartedAt = &now

		e.wg.Add(1)
		go e.run(ctx, exec)
		return
	}
}

// run applies the remaining steps of an in-flight execution in order.
// Applied steps are never rolled back: a failure partway through leaves
// the pool at whatever capacity the applied steps reached.
func (e *Executor) run(ctx context.Context, exec *models.Execution) {
	defer e.wg.Done()

	decision := exec.Decision
	capacity := decision.CurrentCapacity + exec.AppliedDelta()

	for _, step := range exec.Steps {
		if step.Result != models.StepPending {
			continue
		}

		select {
		case <-ctx.Done():
			e.fail(exec, step, ctx.Err().Error())
			return
		case <-time.After(time.Until(step.ScheduledAt)):
		}

		target := capacity + step.Delta
		result, err := e.applyStep(ctx, decision.PoolID, target)
		if err != nil {
			e.fail(exec, step, err.Error())
			return
		}
		if !result.Accepted {
			// Provider pushback (rate limit, maintenance window). The
			// execution parks as BLOCKED at the head of the queue and the
			// remaining steps retry on a later tick.
			e.block(exec, result.RejectReason)
			return
		}

		capacity = target
		e.completeStep(exec, step, capacity)
	}
}

func (e *Executor) applyStep(ctx context.Context, poolID string, target int) (*ApplyResult, error) {
	stepCtx, cancel := context.WithTimeout(ctx, e.config.StepTimeout)
	defer cancel()

	result, err := e.provider.SetDesiredCapacity(stepCtx, poolID, target)
	if err != nil {
		if stepCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", ErrStepTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrApplyFailed, err)
	}
	return result, nil
}

// completeStep marks a step applied and, when it is the last one,
// finishes the execution and arms the cooldown inside the same critical
// section. No tick can observe the completed execution without its
// cooldown already active.
func (e *Executor) completeStep(exec *models.Execution, step *models.ExecutionStep, capacity int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	step.ExecutedAt = &now
	step.Result = models.StepApplied

	logger.WithDecision(exec.Decision.DecisionID).Infof(
		"Step applied:  %+d -> capacity %d (pool %s)",
		step.Delta, capacity, exec.Decision.PoolID,
	)
	if e.callbacks.OnStepApplied != nil {
		snapshot := cloneLocked(exec)
		stepCopy := *step
		go e.callbacks.OnStepApplied(snapshot, &stepCopy)
	}

	if exec.RemainingSteps() == 0 {
		e.cooldowns.Start(exec.Decision.PoolID, exec.Decision.Direction())
		delete(e.inflight, exec.Decision.PoolID)
		e.finishLocked(exec, models.StateCompleted, "")
	}
}

func (e *Executor) fail(exec *models.Execution, step *models.ExecutionStep, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	step.Result = models.StepFailed
	delete(e.inflight, exec.Decision.PoolID)
	e.finishLocked(exec, models.StateFailed, reason)

	logger.WithDecision(exec.Decision.DecisionID).Errorf(
		"Execution failed at step %s: %s (applied delta %+d retained)",
		step.StepID[:8], reason, exec.AppliedDelta(),
	)
}

func (e *Executor) block(exec *models.Execution, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.inflight, exec.Decision.PoolID)
	e.transitionLocked(exec, models.StateBlocked)
	e.queues[exec.Decision.PoolID] = append(
		[]*models.Execution{exec}, e.queues[exec.Decision.PoolID]...,
	)

	logger.WithDecision(exec.Decision.DecisionID).Warnf(
		"Execution blocked by provider: %s", reason,
	)
}

func (e *Executor) transitionLocked(exec *models.Execution, newState models.ExecutionState) {
	oldState := exec.State
	exec.State = newState
	if e.callbacks.OnStateChanged != nil {
		snapshot := cloneLocked(exec)
		go e.callbacks.OnStateChanged(snapshot, oldState, newState)
	}
}

func (e *Executor) finishLocked(exec *models.Execution, state models.ExecutionState, failure string) {
	now := time.Now()
	exec.FinishedAt = &now
	exec.Failure = failure
	e.transitionLocked(exec, state)

	id := exec.Decision.DecisionID
	e.history[id] = exec
	e.order = append(e.order, id)
	for len(e.order) > e.config.HistoryLimit {
		delete(e.history, e.order[0])
		e.order = e.order[1:]
	}
}

func (e *Executor) findInflightLocked(decisionID string) (*models.Execution, bool) {
	for _, exec := range e.inflight {
		if exec.Decision.DecisionID == decisionID {
			return exec, true
		}
	}
	return nil, false
}

// Get returns the execution for a decision, queued, running, or finished.
// The result is a snapshot: the runner goroutine keeps mutating the live
// execution, so callers never receive it directly.
func (e *Executor) Get(decisionID string) (*models.Execution, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if exec, ok := e.history[decisionID]; ok {
		return cloneLocked(exec), true
	}
	if exec, ok := e.findInflightLocked(decisionID); ok {
		return cloneLocked(exec), true
	}
	for _, queue := range e.queues {
		for _, exec := range queue {
			if exec.Decision.DecisionID == decisionID {
				return cloneLocked(exec), true
			}
		}
	}
	return nil, false
}

// cloneLocked deep-copies an execution so it can leave the executor's
// critical section. The decision itself is immutable and shared.
func cloneLocked(exec *models.Execution) *models.Execution {
	out := &models.Execution{
		Decision: exec.Decision,
		Steps:    make([]*models.ExecutionStep, len(exec.Steps)),
		State:    exec.State,
		Failure:  exec.Failure,
	}
	for i, step := range exec.Steps {
		s := *step
		if step.ExecutedAt != nil {
			at := *step.ExecutedAt
			s.ExecutedAt = &at
		}
		out.Steps[i] = &s
	}
	if exec.StartedAt != nil {
		at := *exec.StartedAt
		out.StartedAt = &at
	}
	if exec.FinishedAt != nil {
		at := *exec.FinishedAt
		out.FinishedAt = &at
	}
	return out
}

// QueueDepth returns how many decisions are waiting for a pool,
// excluding any in-flight execution.
func (e *Executor) QueueDepth(poolID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queues[poolID])
}

func (e *Executor) Cooldowns() []models.Cooldown {
	return e.cooldowns.Snapshot()
}

// Drain waits for in-flight executions to reach a terminal state.
func (e *Executor) Drain() {
	e.wg.Wait()
}

func (e *Executor) Close() error {
	e.Drain()
	return e.provider.Close()
}
