package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riverbyte/capacity-engine/api"
	"github.com/riverbyte/capacity-engine/internal/logger"
	"github.com/riverbyte/capacity-engine/internal/metrics"
	"github.com/riverbyte/capacity-engine/internal/orchestrator"
	"github.com/riverbyte/capacity-engine/internal/sampler"
	"github.com/riverbyte/capacity-engine/internal/simulator"
	"github.com/riverbyte/capacity-engine/pkg/config"
	"github.com/riverbyte/capacity-engine/pkg/database"
	"github.com/riverbyte/capacity-engine/pkg/database/queries"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations")
	demo := flag.Bool("demo", false, "run a scripted end-to-end demo")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	db, err := database.New(cfg.Database.ToDBConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	logger.Info("Database connection established")

	if *migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		logger.Info("Running database migrations")
		migrator := database.NewMigrator(db)
		if err := migrator.Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	// Embedded load simulator doubles as the capacity provider backend.
	sim := simulator.New(simulator.Config{Port: cfg.Simulator.Port})
	if err := sim.Start(); err != nil {
		return fmt.Errorf("failed to start simulator: %w", err)
	}
	defer sim.Stop()

	provider := simulator.NewProvider(sim, cfg.Simulator.MaxChangesPerMinute)

	orch := orchestrator.New(cfg, db, provider)
	if err := orch.Start(); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	defer orch.Stop()

	if *demo {
		return runDemo(cfg, orch, sim)
	}

	if err := resumePools(cfg, db, orch, sim); err != nil {
		logger.Errorf("Failed to resume pool pipelines: %v", err)
	}

	if cfg.Prometheus.Enabled {
		metrics.StartServer(cfg.Prometheus.Port)
	}

	server := api.NewServer(cfg, db, orch, orch.Resolver(), orch.Executor())

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// resumePools restarts pipelines for pools that were active before the
// last shutdown.
func resumePools(cfg *config.Config, db *database.DB, orch *orchestrator.Orchestrator, sim *simulator.Simulator) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolRepo := queries.NewPoolRepository(db.DB)
	pools, err := poolRepo.GetAll(ctx)
	if err != nil {
		return err
	}

	for _, pool := range pools {
		if !pool.IsActive() {
			continue
		}

		sim.GetOrCreatePool(pool.ID).SetCapacity(pool.MinCapacity)

		if err := orch.StartPool(pool, sourceFor(cfg, pool)); err != nil {
			logger.WithPool(pool.ID).Errorf("Failed to resume pipeline: %v", err)
			continue
		}
		logger.WithPool(pool.ID).Info("Pipeline resumed")
	}

	return nil
}

func sourceFor(cfg *config.Config, pool *models.ResourcePool) sampler.MetricsSource {
	endpoint := cfg.Sampler.Endpoint
	if pool.Config != nil && pool.Config.MetricsEndpoint != "" {
		endpoint = pool.Config.MetricsEndpoint
	}

	httpSource := sampler.NewHTTPSource(sampler.HTTPSourceConfig{
		Endpoint: endpoint,
		Timeout:  cfg.Sampler.Timeout,
	})

	return sampler.NewResilientSource(sampler.ResilientSourceConfig{
		Source:        httpSource,
		MaxFailures:   cfg.Sampler.CircuitBreaker.MaxFailures,
		Timeout:       cfg.Sampler.CircuitBreaker.Timeout,
		RetryAttempts: cfg.Sampler.RetryAttempts,
	})
}

// runDemo drives a pool through rising load, a spike, and recovery against
// the embedded simulator, logging every event along the way.
func runDemo(cfg *config.Config, orch *orchestrator.Orchestrator, sim *simulator.Simulator) error {
	logger.Info("Running end-to-end demo")

	eventChan := orch.SubscribeAllEvents()
	go func() {
		for event := range eventChan {
			logger.Infof("[EVENT] %s: %s (pool: %s, severity: %s)",
				event.Type, event.Message, event.PoolID, event.Severity)
		}
	}()

	pool := models.NewResourcePool("demo-compute", "compute", 2, 20)

	simPool := sim.GetOrCreatePool(pool.ID)
	simPool.SetCapacity(3)
	simPool.SetBaseRequestRate(150)

	if err := orch.StartPool(pool, sourceFor(cfg, pool)); err != nil {
		return fmt.Errorf("failed to start pool: %w", err)
	}

	logger.Info("=== Phase 1: Steady load ===")
	time.Sleep(90 * time.Second)

	logger.Info("=== Phase 2: Gradual rise ===")
	simPool.SetPattern(simulator.ParsePattern("gradual_rise"))
	time.Sleep(3 * time.Minute)

	logger.Info("=== Phase 3: Traffic spike ===")
	simPool.InjectSpike(900, 2*time.Minute, 20*time.Second)
	time.Sleep(3 * time.Minute)

	logger.Info("=== Phase 4: Recovery ===")
	simPool.SetPattern(simulator.ParsePattern("steady"))
	simPool.SetBaseRequestRate(150)
	time.Sleep(3 * time.Minute)

	running := orch.ListRunningPools()
	logger.Infof("Running pools: %v", running)
	logger.Infof("Final capacity: %d", simPool.Capacity())

	if err := orch.StopPool(pool.ID); err != nil {
		logger.Errorf("Failed to stop pool: %v", err)
	}

	logger.Info("Demo completed")
	return nil
}
