package config

import (
	"fmt"
	"time"

	"github.com/riverbyte/capacity-engine/pkg/models"
)

type Config struct {
	App         AppConfig          `mapstructure:"app"`
	Database    DatabaseConfig     `mapstructure:"database"`
	Sampler     SamplerConfig      `mapstructure:"sampler"`
	Trend       TrendConfig        `mapstructure:"trend"`
	Forecast    ForecastConfig     `mapstructure:"forecast"`
	Decision    DecisionConfig     `mapstructure:"decision"`
	Executor    ExecutorConfig     `mapstructure:"executor"`
	Constraints []ConstraintConfig `mapstructure:"constraints"`
	API         APIConfig          `mapstructure:"api"`
	WebSocket   WebSocketConfig    `mapstructure:"websocket"`
	Prometheus  PrometheusConfig   `mapstructure:"prometheus"`
	Events      EventsConfig       `mapstructure:"events"`
	Simulator   SimulatorConfig    `mapstructure:"simulator"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Name             string        `mapstructure:"name"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	MaxConnections   int           `mapstructure:"max_connections"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout      time.Duration `mapstructure:"ping_timeout"`
	MigrationTimeout time.Duration `mapstructure:"migration_timeout"`
}

func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslMode,
	)
}

type SamplerConfig struct {
	Type           string               `mapstructure:"type"`
	Endpoint       string               `mapstructure:"endpoint"`
	Interval       time.Duration        `mapstructure:"interval"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	RetryAttempts  int                  `mapstructure:"retry_attempts"`
	LookbackWindow time.Duration        `mapstructure:"lookback_window"`
	MaxHistoryLen  int                  `mapstructure:"max_history_len"`
	Retention      time.Duration        `mapstructure:"retention"`
	MetricNames    []string             `mapstructure:"metrics"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// Metrics converts the configured metric names into the model type.
func (s SamplerConfig) Metrics() []models.MetricName {
	metrics := make([]models.MetricName, 0, len(s.MetricNames))
	for _, name := range s.MetricNames {
		metrics = append(metrics, models.MetricName(name))
	}
	return metrics
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type TrendConfig struct {
	WindowSize int `mapstructure:"window_size"`
}

type ForecastConfig struct {
	HorizonMinutes       int           `mapstructure:"horizon_minutes"`
	SampleInterval       time.Duration `mapstructure:"sample_interval"`
	ScaleOutThresholdPct float64       `mapstructure:"scale_out_threshold_pct"`
	ScaleInThresholdPct  float64       `mapstructure:"scale_in_threshold_pct"`
	RequestRatePerUnit   float64       `mapstructure:"request_rate_per_unit"`
	SufficiencyWindow    int           `mapstructure:"sufficiency_window"`
}

type DecisionConfig struct {
	MaxChangePerStep    int     `mapstructure:"max_change_per_step"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

type ExecutorConfig struct {
	StepInterval     time.Duration `mapstructure:"step_interval"`
	StepTimeout      time.Duration `mapstructure:"step_timeout"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	DecisionTTL      time.Duration `mapstructure:"decision_ttl"`
	QueueLimit       int           `mapstructure:"queue_limit"`
	CooldownScaleOut time.Duration `mapstructure:"cooldown_scale_out"`
	CooldownScaleIn  time.Duration `mapstructure:"cooldown_scale_in"`
}

type ConstraintConfig struct {
	ResourceType          string            `mapstructure:"resource_type"`
	HardCeiling           int               `mapstructure:"hard_ceiling"`
	SoftCeiling           int               `mapstructure:"soft_ceiling"`
	MaxAttachmentsPerUnit int               `mapstructure:"max_attachments_per_unit"`
	Pools                 []PoolLimitConfig `mapstructure:"pools"`
}

type PoolLimitConfig struct {
	PoolID      string `mapstructure:"pool_id"`
	HardCeiling int    `mapstructure:"hard_ceiling"`
}

type APIConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RateLimit      int           `mapstructure:"rate_limit"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTDuration    time.Duration `mapstructure:"jwt_duration"`
	JWTIssuer      string        `mapstructure:"jwt_issuer"`
	CookieName     string        `mapstructure:"cookie_name"`
	CookieMaxAge   int           `mapstructure:"cookie_max_age"`
	CookiePath     string        `mapstructure:"cookie_path"`
	CookieSecure   bool          `mapstructure:"cookie_secure"`
	CookieHTTPOnly bool          `mapstructure:"cookie_http_only"`
	DefaultLimit   int           `mapstructure:"default_limit"`
	MaxLimit       int           `mapstructure:"max_limit"`
	CORS           CORSConfig    `mapstructure:"cors"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type SimulatorConfig struct {
	Port                int `mapstructure:"port"`
	MaxChangesPerMinute int `mapstructure:"max_changes_per_minute"`
}
