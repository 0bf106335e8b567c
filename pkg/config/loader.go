package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/capacity-engine")
	}

	// Environment variable settings
	v.SetEnvPrefix("CAPACITY_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "capacity-engine")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "15s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "capacity_engine")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.ssl_mode", "disable")

	// Sampler defaults
	v.SetDefault("sampler.type", "http")
	v.SetDefault("sampler.endpoint", "http://localhost:9000")
	v.SetDefault("sampler.interval", "30s")
	v.SetDefault("sampler.timeout", "5s")
	v.SetDefault("sampler.retry_attempts", 3)
	v.SetDefault("sampler.lookback_window", "1m")
	v.SetDefault("sampler.max_history_len", 1008)
	v.SetDefault("sampler.retention", "168h")
	v.SetDefault("sampler.metrics", []string{
		"cpu_utilization", "request_rate", "p99_latency_ms", "queue_depth",
	})
	v.SetDefault("sampler.circuit_breaker.max_failures", 5)
	v.SetDefault("sampler.circuit_breaker.timeout", "30s")

	// Trend defaults
	v.SetDefault("trend.window_size", 24)

	// Forecast defaults
	v.SetDefault("forecast.horizon_minutes", 60)
	v.SetDefault("forecast.sample_interval", "1m")
	v.SetDefault("forecast.scale_out_threshold_pct", 70.0)
	v.SetDefault("forecast.scale_in_threshold_pct", 30.0)
	v.SetDefault("forecast.request_rate_per_unit", 100.0)
	v.SetDefault("forecast.sufficiency_window", 24)

	// Decision defaults
	v.SetDefault("decision.max_change_per_step", 3)
	v.SetDefault("decision.confidence_threshold", 0.8)

	// Executor defaults
	v.SetDefault("executor.step_interval", "10s")
	v.SetDefault("executor.step_timeout", "30s")
	v.SetDefault("executor.tick_interval", "1s")
	v.SetDefault("executor.decision_ttl", "15m")
	v.SetDefault("executor.queue_limit", 32)
	v.SetDefault("executor.cooldown_scale_out", "5m")
	v.SetDefault("executor.cooldown_scale_in", "10m")

	// API defaults
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.jwt_secret", "change-me-in-production")
	v.SetDefault("api.jwt_duration", "24h")
	v.SetDefault("api.jwt_issuer", "capacity-engine")

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", "30s")

	// Prometheus defaults
	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.port", 9090)

	// Events defaults
	v.SetDefault("events.buffer_size", 100)

	// Simulator defaults
	v.SetDefault("simulator.port", 9000)
	v.SetDefault("simulator.max_changes_per_minute", 10)
}
