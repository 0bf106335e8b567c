package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riverbyte/capacity-engine/internal/constraint"
	"github.com/riverbyte/capacity-engine/internal/decision"
	"github.com/riverbyte/capacity-engine/internal/events"
	"github.com/riverbyte/capacity-engine/internal/executor"
	"github.com/riverbyte/capacity-engine/internal/forecast"
	"github.com/riverbyte/capacity-engine/internal/logger"
	"github.com/riverbyte/capacity-engine/internal/metrics"
	"github.com/riverbyte/capacity-engine/internal/sampler"
	"github.com/riverbyte/capacity-engine/internal/trend"
	"github.com/riverbyte/capacity-engine/pkg/config"
	"github.com/riverbyte/capacity-engine/pkg/database"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

type Orchestrator struct {
	config      *config.Config
	db          *database.DB
	eventBus    *events.EventBus
	eventLogger *events.EventLogger
	resolver    *constraint.Resolver
	executor    *executor.Executor
	provider    executor.CapacityProvider
	pipelines   map[string]*Pipeline
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func New(cfg *config.Config, db *database.DB, provider executor.CapacityProvider) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	eventBus := events.NewEventBus(cfg.Events.BufferSize)

	// Subscribe event logger to all events
	allEvents := eventBus.SubscribeAll()
	eventLogger := events.NewEventLogger(db, allEvents)

	resolver := constraint.NewResolver(nil)
	for _, c := range cfg.Constraints {
		resolver.UpdateConstraint(models.CapacityConstraint{
			ResourceType:          c.ResourceType,
			HardCeiling:           c.HardCeiling,
			SoftCeiling:           c.SoftCeiling,
			MaxAttachmentsPerUnit: c.MaxAttachmentsPerUnit,
		})
		limits := make([]constraint.PoolLimit, 0, len(c.Pools))
		for _, p := range c.Pools {
			limits = append(limits, constraint.PoolLimit{
				PoolID:      p.PoolID,
				HardCeiling: p.HardCeiling,
			})
		}
		resolver.SetPoolLimits(c.ResourceType, limits)
	}

	publisher := events.NewPublisher(eventBus)
	cooldowns := executor.NewCooldownStore(
		cfg.Executor.CooldownScaleOut,
		cfg.Executor.CooldownScaleIn,
	)

	exec := executor.New(executor.Config{
		MaxChangePerStep: cfg.Decision.MaxChangePerStep,
		StepInterval:     cfg.Executor.StepInterval,
		StepTimeout:      cfg.Executor.StepTimeout,
		DecisionTTL:      cfg.Executor.DecisionTTL,
		QueueLimit:       cfg.Executor.QueueLimit,
	}, provider, cooldowns, executor.Callbacks{
		OnStateChanged: func(exec *models.Execution, oldState, newState models.ExecutionState) {
			publishStateChange(publisher, exec, newState)
		},
		OnStepApplied: func(exec *models.Execution, step *models.ExecutionStep) {
			metrics.Get().IncStep(exec.Decision.PoolID, string(step.Result))
			publisher.StepApplied(exec, step)
		},
	})

	return &Orchestrator{
		config:      cfg,
		db:          db,
		eventBus:    eventBus,
		eventLogger: eventLogger,
		resolver:    resolver,
		executor:    exec,
		provider:    provider,
		pipelines:   make(map[string]*Pipeline),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func publishStateChange(publisher *events.Publisher, exec *models.Execution, newState models.ExecutionState) {
	poolID := exec.Decision.PoolID
	if newState.IsTerminal() {
		metrics.Get().IncExecution(poolID, string(newState))
	}

	switch newState {
	case models.StateInProgress:
		publisher.ExecutionStarted(exec)
	case models.StateBlocked:
		publisher.ExecutionBlocked(exec)
	case models.StateCompleted:
		publisher.ExecutionComplete(exec)
	case models.StateFailed:
		publisher.ExecutionFailed(exec)
	case models.StateExpired:
		publisher.ExecutionExpired(exec)
	}
}

func (o *Orchestrator) Start() error {
	logger.Info("Orchestrator starting")
	o.eventLogger.Start()

	o.wg.Add(1)
	go o.tickExecutor()

	return nil
}

func (o *Orchestrator) Stop() {
	logger.Info("Orchestrator stopping")

	o.mu.Lock()
	for poolID, pipeline := range o.pipelines {
		logger.Infof("Stopping pipeline for pool %s", poolID)
		pipeline.Stop()
	}
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
	o.executor.Drain()

	o.eventLogger.Stop()
	o.eventBus.Close()

	logger.Info("Orchestrator stopped")
}

// tickExecutor drives the staged executor independently of the pipeline
// cadence, so blocked and scheduled steps progress even between cycles.
func (o *Orchestrator) tickExecutor() {
	defer o.wg.Done()

	interval := o.config.Executor.TickInterval
	if interval == 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			o.executor.Tick(o.ctx)
		}
	}
}

func (o *Orchestrator) StartPool(pool *models.ResourcePool, source sampler.MetricsSource) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.pipelines[pool.ID]; exists {
		return fmt.Errorf("pipeline already exists for pool %s", pool.ID)
	}

	poolSampler := sampler.New(source, sampler.Config{
		Metrics:        o.config.Sampler.Metrics(),
		LookbackWindow: o.config.Sampler.LookbackWindow,
		MaxHistoryLen:  o.config.Sampler.MaxHistoryLen,
		Retention:      o.config.Sampler.Retention,
	})

	pipeline := NewPipeline(PipelineConfig{
		Pool:          pool,
		CycleInterval: o.config.Sampler.Interval,
		Sampler:       poolSampler,
		Estimator:     trend.NewEstimator(o.config.Trend.WindowSize),
		Forecaster: forecast.New(forecast.Config{
			HorizonMinutes:       o.config.Forecast.HorizonMinutes,
			SampleInterval:       o.config.Forecast.SampleInterval,
			ScaleOutThresholdPct: o.config.Forecast.ScaleOutThresholdPct,
			ScaleInThresholdPct:  o.config.Forecast.ScaleInThresholdPct,
			RequestRatePerUnit:   o.config.Forecast.RequestRatePerUnit,
			SufficiencyWindow:    o.config.Forecast.SufficiencyWindow,
		}),
		Resolver: o.resolver,
		Maker: decision.NewMaker(decision.Config{
			MaxChangePerStep:    o.config.Decision.MaxChangePerStep,
			ConfidenceThreshold: o.config.Decision.ConfidenceThreshold,
		}),
		Executor:       o.executor,
		Provider:       o.provider,
		EventPublisher: events.NewPublisher(o.eventBus),
	})

	if err := pipeline.Start(); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	o.pipelines[pool.ID] = pipeline
	logger.WithPool(pool.ID).Info("Pool pipeline started")

	return nil
}

func (o *Orchestrator) StopPool(poolID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	pipeline, exists := o.pipelines[poolID]
	if !exists {
		return fmt.Errorf("no pipeline found for pool %s", poolID)
	}

	pipeline.Stop()
	delete(o.pipelines, poolID)
	logger.WithPool(poolID).Info("Pool pipeline stopped")

	return nil
}

func (o *Orchestrator) GetPoolStatus(poolID string) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	pipeline, exists := o.pipelines[poolID]
	if !exists {
		return false, fmt.Errorf("no pipeline found for pool %s", poolID)
	}

	return pipeline.IsRunning(), nil
}

func (o *Orchestrator) ListRunningPools() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	pools := make([]string, 0, len(o.pipelines))
	for poolID, pipeline := range o.pipelines {
		if pipeline.IsRunning() {
			pools = append(pools, poolID)
		}
	}
	return pools
}

// Executor exposes execution status to the API layer.
func (o *Orchestrator) Executor() *executor.Executor {
	return o.executor
}

func (o *Orchestrator) Resolver() *constraint.Resolver {
	return o.resolver
}

func (o *Orchestrator) SubscribeEvents(eventType models.EventType) <-chan *models.Event {
	return o.eventBus.Subscribe(eventType)
}

func (o *Orchestrator) SubscribeAllEvents() <-chan *models.Event {
	return o.eventBus.SubscribeAll()
}
