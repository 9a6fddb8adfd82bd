package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/leadscore/backend/internal/domain/experiment"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Shadow      ShadowConfig
	Experiment  ExperimentConfig
	Monitor     MonitorConfig
	DecisionLog DecisionLogConfig
	Telemetry   TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings for the schema cache
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
}

// ShadowConfig holds shadow-mode execution settings. Tolerances define
// when the rule output is considered equivalent to the legacy output.
type ShadowConfig struct {
	Enabled             bool
	ScoreTolerance      float64
	ConfidenceTolerance float64
	// TimeBudget bounds the rule path so it can never gate the caller.
	TimeBudget time.Duration
}

// ExperimentConfig holds traffic bucketing settings, with optional
// per-tool overrides.
type ExperimentConfig struct {
	TrafficSplitPercent int
	ControlVersion      string
	TestVersion         string
	Tools               map[string]ToolExperiment
}

// ToolExperiment overrides experiment settings for a single tool
type ToolExperiment struct {
	TrafficSplitPercent *int   `mapstructure:"traffic_split_percent"`
	ControlVersion      string `mapstructure:"control_version"`
	TestVersion         string `mapstructure:"test_version"`
}

// ForTool resolves the effective experiment config for a tool.
func (e *ExperimentConfig) ForTool(tool string) experiment.Config {
	cfg := experiment.Config{
		TrafficSplitPercent: e.TrafficSplitPercent,
		ControlVersion:      e.ControlVersion,
		TestVersion:         e.TestVersion,
	}
	if override, ok := e.Tools[tool]; ok {
		if override.TrafficSplitPercent != nil {
			cfg.TrafficSplitPercent = *override.TrafficSplitPercent
		}
		if override.ControlVersion != "" {
			cfg.ControlVersion = override.ControlVersion
		}
		if override.TestVersion != "" {
			cfg.TestVersion = override.TestVersion
		}
	}
	return cfg
}

// MonitorConfig holds performance monitor thresholds, globally with
// optional per-tool overrides.
type MonitorConfig struct {
	SuccessRateThreshold     float64
	MinFeedbackSamples       int64
	WinnerRateDelta          float64
	ConfidenceThreshold      float64
	MinDecisionSamples       int64
	PendingFeedbackThreshold int64
	MatchToleranceThreshold  float64
	MinShadowSamples         int64
	WindowDays               int
	TrainingBatchSize        int
	WebhookURL               string
	Tools                    map[string]MonitorOverrides
}

// MonitorOverrides holds per-tool threshold overrides. Nil fields fall
// back to the global values.
type MonitorOverrides struct {
	SuccessRateThreshold    *float64 `mapstructure:"success_rate_threshold"`
	ConfidenceThreshold     *float64 `mapstructure:"confidence_threshold"`
	MatchToleranceThreshold *float64 `mapstructure:"match_tolerance_threshold"`
}

// ForTool resolves effective thresholds for a tool.
func (m *MonitorConfig) ForTool(tool string) (successRate, confidence, matchTolerance float64) {
	successRate = m.SuccessRateThreshold
	confidence = m.ConfidenceThreshold
	matchTolerance = m.MatchToleranceThreshold
	if override, ok := m.Tools[tool]; ok {
		if override.SuccessRateThreshold != nil {
			successRate = *override.SuccessRateThreshold
		}
		if override.ConfidenceThreshold != nil {
			confidence = *override.ConfidenceThreshold
		}
		if override.MatchToleranceThreshold != nil {
			matchTolerance = *override.MatchToleranceThreshold
		}
	}
	return successRate, confidence, matchTolerance
}

// DecisionLogConfig holds async decision persistence settings
type DecisionLogConfig struct {
	QueueSize      int
	Workers        int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with LEADSCORE_ prefix (e.g. LEADSCORE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("LEADSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
		},
		Shadow: ShadowConfig{
			Enabled:             v.GetBool("shadow.enabled"),
			ScoreTolerance:      v.GetFloat64("shadow.score_tolerance"),
			ConfidenceTolerance: v.GetFloat64("shadow.confidence_tolerance"),
			TimeBudget:          v.GetDuration("shadow.time_budget"),
		},
		Experiment: ExperimentConfig{
			TrafficSplitPercent: v.GetInt("experiment.traffic_split_percent"),
			ControlVersion:      v.GetString("experiment.control_version"),
			TestVersion:         v.GetString("experiment.test_version"),
		},
		Monitor: MonitorConfig{
			SuccessRateThreshold:     v.GetFloat64("monitor.success_rate_threshold"),
			MinFeedbackSamples:       v.GetInt64("monitor.min_feedback_samples"),
			WinnerRateDelta:          v.GetFloat64("monitor.winner_rate_delta"),
			ConfidenceThreshold:      v.GetFloat64("monitor.confidence_threshold"),
			MinDecisionSamples:       v.GetInt64("monitor.min_decision_samples"),
			PendingFeedbackThreshold: v.GetInt64("monitor.pending_feedback_threshold"),
			MatchToleranceThreshold:  v.GetFloat64("monitor.match_tolerance_threshold"),
			MinShadowSamples:         v.GetInt64("monitor.min_shadow_samples"),
			WindowDays:               v.GetInt("monitor.window_days"),
			TrainingBatchSize:        v.GetInt("monitor.training_batch_size"),
			WebhookURL:               v.GetString("monitor.webhook_url"),
		},
		DecisionLog: DecisionLogConfig{
			QueueSize:      v.GetInt("decision_log.queue_size"),
			Workers:        v.GetInt("decision_log.workers"),
			MaxAttempts:    v.GetInt("decision_log.max_attempts"),
			RetryBaseDelay: v.GetDuration("decision_log.retry_base_delay"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	// Per-tool override tables
	if err := v.UnmarshalKey("experiment.tools", &cfg.Experiment.Tools); err != nil {
		return nil, fmt.Errorf("error parsing experiment.tools: %w", err)
	}
	if err := v.UnmarshalKey("monitor.tools", &cfg.Monitor.Tools); err != nil {
		return nil, fmt.Errorf("error parsing monitor.tools: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "leadscore-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "leadscore"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 10 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Shadow.ScoreTolerance == 0 {
		cfg.Shadow.ScoreTolerance = 5
	}
	if cfg.Shadow.ConfidenceTolerance == 0 {
		cfg.Shadow.ConfidenceTolerance = 0.10
	}
	if cfg.Shadow.TimeBudget == 0 {
		cfg.Shadow.TimeBudget = 200 * time.Millisecond
	}
	if cfg.Experiment.ControlVersion == "" {
		cfg.Experiment.ControlVersion = "v1"
	}
	if cfg.Experiment.TestVersion == "" {
		cfg.Experiment.TestVersion = cfg.Experiment.ControlVersion
	}
	if cfg.Monitor.SuccessRateThreshold == 0 {
		cfg.Monitor.SuccessRateThreshold = 0.85
	}
	if cfg.Monitor.MinFeedbackSamples == 0 {
		cfg.Monitor.MinFeedbackSamples = 100
	}
	if cfg.Monitor.WinnerRateDelta == 0 {
		cfg.Monitor.WinnerRateDelta = 0.05
	}
	if cfg.Monitor.ConfidenceThreshold == 0 {
		cfg.Monitor.ConfidenceThreshold = 0.75
	}
	if cfg.Monitor.MinDecisionSamples == 0 {
		cfg.Monitor.MinDecisionSamples = 200
	}
	if cfg.Monitor.PendingFeedbackThreshold == 0 {
		cfg.Monitor.PendingFeedbackThreshold = 100
	}
	if cfg.Monitor.MatchToleranceThreshold == 0 {
		cfg.Monitor.MatchToleranceThreshold = 0.10
	}
	if cfg.Monitor.MinShadowSamples == 0 {
		cfg.Monitor.MinShadowSamples = 50
	}
	if cfg.Monitor.WindowDays == 0 {
		cfg.Monitor.WindowDays = 7
	}
	if cfg.Monitor.TrainingBatchSize == 0 {
		cfg.Monitor.TrainingBatchSize = 50
	}
	if cfg.DecisionLog.QueueSize == 0 {
		cfg.DecisionLog.QueueSize = 1024
	}
	if cfg.DecisionLog.Workers == 0 {
		cfg.DecisionLog.Workers = 4
	}
	if cfg.DecisionLog.MaxAttempts == 0 {
		cfg.DecisionLog.MaxAttempts = 3
	}
	if cfg.DecisionLog.RetryBaseDelay == 0 {
		cfg.DecisionLog.RetryBaseDelay = 100 * time.Millisecond
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "leadscore-backend"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Experiment.TrafficSplitPercent < 0 || c.Experiment.TrafficSplitPercent > 100 {
		return fmt.Errorf("experiment.traffic_split_percent must be within [0, 100], got %d",
			c.Experiment.TrafficSplitPercent)
	}
	for tool, override := range c.Experiment.Tools {
		if override.TrafficSplitPercent != nil &&
			(*override.TrafficSplitPercent < 0 || *override.TrafficSplitPercent > 100) {
			return fmt.Errorf("experiment.tools.%s.traffic_split_percent must be within [0, 100]", tool)
		}
	}
	if c.Shadow.ScoreTolerance < 0 {
		return fmt.Errorf("shadow.score_tolerance cannot be negative")
	}
	if c.Shadow.ConfidenceTolerance < 0 || c.Shadow.ConfidenceTolerance > 1 {
		return fmt.Errorf("shadow.confidence_tolerance must be within [0, 1]")
	}
	if c.Monitor.SuccessRateThreshold < 0 || c.Monitor.SuccessRateThreshold > 1 {
		return fmt.Errorf("monitor.success_rate_threshold must be within [0, 1]")
	}
	if c.Monitor.MatchToleranceThreshold < 0 || c.Monitor.MatchToleranceThreshold > 1 {
		return fmt.Errorf("monitor.match_tolerance_threshold must be within [0, 1]")
	}
	if c.Monitor.WinnerRateDelta < 0 || c.Monitor.WinnerRateDelta > 1 {
		return fmt.Errorf("monitor.winner_rate_delta must be within [0, 1]")
	}
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Tolerance returns the shadow comparison thresholds.
func (s *ShadowConfig) Tolerance() (score, confidence float64) {
	return s.ScoreTolerance, s.ConfidenceTolerance
}
