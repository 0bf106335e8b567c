package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverbyte/capacity-engine/pkg/config"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

func loadDefaults(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadDefaults(t)

	assert.Equal(t, "capacity-engine", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Mode)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 30*time.Second, cfg.Sampler.Interval)
	assert.Equal(t, 24, cfg.Trend.WindowSize)
	assert.Equal(t, 60, cfg.Forecast.HorizonMinutes)
	assert.Equal(t, 70.0, cfg.Forecast.ScaleOutThresholdPct)
	assert.Equal(t, 3, cfg.Decision.MaxChangePerStep)
	assert.Equal(t, 15*time.Minute, cfg.Executor.DecisionTTL)
	assert.Equal(t, 5*time.Minute, cfg.Executor.CooldownScaleOut)
	assert.Equal(t, 10*time.Minute, cfg.Executor.CooldownScaleIn)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 10, cfg.Simulator.MaxChangesPerMinute)
}

func TestLoad_DefaultsValidate(t *testing.T) {
	cfg := loadDefaults(t)
	assert.NoError(t, cfg.Validate())
}

func TestSamplerConfig_Metrics(t *testing.T) {
	cfg := loadDefaults(t)

	metrics := cfg.Sampler.Metrics()
	assert.Equal(t, []models.MetricName{
		models.MetricCPUUtilization,
		models.MetricRequestRate,
		models.MetricP99Latency,
		models.MetricQueueDepth,
	}, metrics)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	db := config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		Name:     "engine",
		User:     "svc",
		Password: "secret",
	}

	dsn := db.DSN()
	assert.Contains(t, dsn, "host=db.internal")
	assert.Contains(t, dsn, "port=5433")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "bad mode",
			mutate: func(c *config.Config) { c.App.Mode = "staging" },
			want:   "app.mode",
		},
		{
			name:   "timeout not below interval",
			mutate: func(c *config.Config) { c.Sampler.Timeout = c.Sampler.Interval },
			want:   "sampler.timeout",
		},
		{
			name:   "trend window too small",
			mutate: func(c *config.Config) { c.Trend.WindowSize = 1 },
			want:   "trend.window_size",
		},
		{
			name: "inverted forecast thresholds",
			mutate: func(c *config.Config) {
				c.Forecast.ScaleOutThresholdPct = 20
				c.Forecast.ScaleInThresholdPct = 30
			},
			want: "scale_out_threshold_pct",
		},
		{
			name: "soft ceiling above hard ceiling",
			mutate: func(c *config.Config) {
				c.Constraints = []config.ConstraintConfig{{
					ResourceType: "compute",
					HardCeiling:  10,
					SoftCeiling:  20,
				}}
			},
			want: "soft_ceiling",
		},
		{
			name:   "default jwt secret in production",
			mutate: func(c *config.Config) { c.App.Mode = "production" },
			want:   "jwt_secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadDefaults(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
