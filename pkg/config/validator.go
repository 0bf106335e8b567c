package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Database validation
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, errors.New("database.port must be between 1 and 65535"))
	}
	if c.Database.Name == "" {
		errs = append(errs, errors.New("database.name is required"))
	}
	if c.Database.MaxConnections <= 0 {
		errs = append(errs, errors.New("database.max_connections must be positive"))
	}

	// Sampler validation
	if c.Sampler.Interval <= 0 {
		errs = append(errs, errors.New("sampler.interval must be positive"))
	}
	if c.Sampler.Timeout <= 0 {
		errs = append(errs, errors.New("sampler.timeout must be positive"))
	}
	if c.Sampler.Timeout >= c.Sampler.Interval {
		errs = append(errs, errors.New("sampler.timeout must be less than sampler.interval"))
	}
	if len(c.Sampler.MetricNames) == 0 {
		errs = append(errs, errors.New("sampler.metrics must list at least one metric"))
	}

	// Trend validation
	if c.Trend.WindowSize < 2 {
		errs = append(errs, errors.New("trend.window_size must be at least 2"))
	}

	// Forecast validation
	if c.Forecast.HorizonMinutes <= 0 {
		errs = append(errs, errors.New("forecast.horizon_minutes must be positive"))
	}
	if c.Forecast.ScaleOutThresholdPct <= c.Forecast.ScaleInThresholdPct {
		errs = append(errs, errors.New("forecast.scale_out_threshold_pct must be greater than scale_in_threshold_pct"))
	}
	if c.Forecast.ScaleOutThresholdPct <= 0 || c.Forecast.ScaleOutThresholdPct > 100 {
		errs = append(errs, errors.New("forecast.scale_out_threshold_pct must be between 0 and 100"))
	}
	if c.Forecast.ScaleInThresholdPct < 0 || c.Forecast.ScaleInThresholdPct >= 100 {
		errs = append(errs, errors.New("forecast.scale_in_threshold_pct must be between 0 and 100"))
	}
	if c.Forecast.RequestRatePerUnit <= 0 {
		errs = append(errs, errors.New("forecast.request_rate_per_unit must be positive"))
	}

	// Decision validation
	if c.Decision.MaxChangePerStep <= 0 {
		errs = append(errs, errors.New("decision.max_change_per_step must be positive"))
	}
	if c.Decision.ConfidenceThreshold < 0 || c.Decision.ConfidenceThreshold > 1 {
		errs = append(errs, errors.New("decision.confidence_threshold must be between 0 and 1"))
	}

	// Executor validation
	if c.Executor.StepTimeout <= 0 {
		errs = append(errs, errors.New("executor.step_timeout must be positive"))
	}
	if c.Executor.DecisionTTL <= 0 {
		errs = append(errs, errors.New("executor.decision_ttl must be positive"))
	}
	if c.Executor.CooldownScaleOut <= 0 {
		errs = append(errs, errors.New("executor.cooldown_scale_out must be positive"))
	}
	if c.Executor.CooldownScaleIn <= 0 {
		errs = append(errs, errors.New("executor.cooldown_scale_in must be positive"))
	}

	// Constraint validation
	for i, constraint := range c.Constraints {
		if constraint.ResourceType == "" {
			errs = append(errs, fmt.Errorf("constraints[%d].resource_type is required", i))
		}
		if constraint.HardCeiling <= 0 {
			errs = append(errs, fmt.Errorf("constraints[%d].hard_ceiling must be positive", i))
		}
		if constraint.SoftCeiling > constraint.HardCeiling {
			errs = append(errs, fmt.Errorf("constraints[%d].soft_ceiling must not exceed hard_ceiling", i))
		}
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.App.Mode == "production" && c.API.JWTSecret == "change-me-in-production" {
		errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
