package orchestrator

import (
	"context"
	"errors"
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
	"github.com/riverbyte/capacity-engine/pkg/models"
)

type PipelineConfig struct {
	Pool           *models.ResourcePool
	CycleInterval  time.Duration
	Sampler        *sampler.Sampler
	Estimator      *trend.Estimator
	Forecaster     *forecast.Forecaster
	Resolver       *constraint.Resolver
	Maker          *decision.Maker
	Executor       *executor.Executor
	Provider       executor.CapacityProvider
	EventPublisher *events.Publisher
}

// Pipeline runs the full scaling cycle for one pool: sample, estimate,
// forecast, resolve constraints, decide, submit for execution. Each pool
// gets its own pipeline goroutine; pools never block each other.
type Pipeline struct {
	config  PipelineConfig
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.CycleInterval == 0 {
		cfg.CycleInterval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pipeline{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	p.running = true
	p.wg.Add(1)
	go p.run()

	logger.WithPool(p.config.Pool.ID).Info("Pipeline started")
	return nil
}

func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	logger.WithPool(p.config.Pool.ID).Info("Pipeline stopped")
}

func (p *Pipeline) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pipeline) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CycleInterval)
	defer ticker.Stop()

	// Run immediately on start
	p.runCycle()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.runCycle()
		}
	}
}

func (p *Pipeline) runCycle() {
	ctx, cancel := context.WithTimeout(p.ctx, p.config.CycleInterval-time.Second)
	defer cancel()

	pool := p.config.Pool
	ops := metrics.Get()

	// Step 1: Sample metrics
	start := time.Now()
	set, err := p.config.Sampler.Sample(ctx, pool.ID)
	if err != nil {
		ops.IncSampleErrors(pool.ID)
		logger.WithPool(pool.ID).Errorf("Sampling failed: %v", err)
		p.config.EventPublisher.Error(pool.ID, "Metric sampling failed", err)
		return
	}
	ops.IncSamples(pool.ID)
	ops.SetSampleLatency(pool.ID, time.Since(start))
	p.config.EventPublisher.SampleCollected(pool.ID, set)

	// Step 2: Current capacity
	capacity, err := p.config.Provider.GetCurrentCapacity(ctx, pool.ID)
	if err != nil {
		logger.WithPool(pool.ID).Errorf("Failed to read pool capacity: %v", err)
		p.config.EventPublisher.Error(pool.ID, "Failed to read pool capacity", err)
		return
	}
	ops.SetCapacity(pool.ID, capacity)

	// Step 3: Trend over the demand metric's history
	history := p.demandHistory(set)
	estimate := p.config.Estimator.Estimate(history)

	// Step 4: Forecast
	start = time.Now()
	fc, err := p.config.Forecaster.Forecast(set, history, estimate, capacity)
	if err != nil {
		if errors.Is(err, forecast.ErrInsufficientData) {
			// Not enough signal this cycle. Holding is the safe default.
			logger.WithPool(pool.ID).Debug("No forecast produced, holding")
			return
		}
		logger.WithPool(pool.ID).Errorf("Forecast failed: %v", err)
		p.config.EventPublisher.Error(pool.ID, "Forecast failed", err)
		return
	}
	ops.SetForecastLatency(pool.ID, time.Since(start))
	ops.IncForecast(pool.ID, string(fc.Pattern))
	ops.SetDemand(pool.ID, fc.CurrentDemand)
	ops.SetPredictedDemand(pool.ID, fc.PredictedDemand)
	p.config.EventPublisher.ForecastCreated(fc)

	// Step 5: Resolve constraints
	resolution := p.resolve(fc, capacity)
	if resolution == nil && fc.RecommendedCapacity != capacity {
		// Infeasible request: surfaced above, nothing to execute.
		return
	}

	// Step 6: Decide
	scalingDecision := p.config.Maker.Decide(pool, fc, resolution, capacity)
	if scalingDecision == nil {
		return
	}
	ops.IncDecision(pool.ID, string(scalingDecision.Direction()))
	p.config.EventPublisher.DecisionMade(scalingDecision)

	// Step 7: Queue for staged execution
	if _, err := p.config.Executor.Submit(scalingDecision); err != nil {
		logger.WithPool(pool.ID).Errorf("Failed to queue decision: %v", err)
		p.config.EventPublisher.Error(pool.ID, "Failed to queue decision", err)
	}
	ops.SetQueueDepth(pool.ID, p.config.Executor.QueueDepth(pool.ID))
}

// demandHistory returns the history of whichever metric the forecaster
// will use as the demand signal this cycle.
func (p *Pipeline) demandHistory(set *models.SampleSet) []models.MetricSample {
	if _, ok := set.Value(models.MetricCPUUtilization); ok {
		return p.config.Sampler.History(set.PoolID, models.MetricCPUUtilization)
	}
	return p.config.Sampler.History(set.PoolID, models.MetricRequestRate)
}

func (p *Pipeline) resolve(fc *models.DemandForecast, capacity int) *models.Resolution {
	pool := p.config.Pool

	resolution, err := p.config.Resolver.Resolve(constraint.Request{
		ResourceType: pool.ResourceType,
		PoolID:       pool.ID,
		Capacity:     fc.RecommendedCapacity,
	})
	if err != nil {
		if errors.Is(err, constraint.ErrUnknownResource) {
			// No constraints registered for this resource type: the
			// recommendation passes through unmodified.
			return &models.Resolution{
				ResourceType:      pool.ResourceType,
				RequestedCapacity: fc.RecommendedCapacity,
				FeasibleCapacity:  fc.RecommendedCapacity,
			}
		}
		if errors.Is(err, constraint.ErrInfeasible) {
			logger.WithPool(pool.ID).Warnf("Requested capacity %d is infeasible", fc.RecommendedCapacity)
			p.config.EventPublisher.ConstraintInfeasible(pool.ID, &models.Resolution{
				ResourceType:      pool.ResourceType,
				RequestedCapacity: fc.RecommendedCapacity,
			})
			return nil
		}
		logger.WithPool(pool.ID).Errorf("Constraint resolution failed: %v", err)
		p.config.EventPublisher.Error(pool.ID, "Constraint resolution failed", err)
		return nil
	}

	if resolution.Accommodation != nil && resolution.Accommodation.Type == models.AccommodationSoftLimitRequest {
		p.config.EventPublisher.SoftLimitRequested(pool.ID, resolution)
	}

	return resolution
}
