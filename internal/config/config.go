package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/complaint-cli/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Routing    RoutingConfig    `yaml:"routing" mapstructure:"routing"`
	Ticketing  TicketingConfig  `yaml:"ticketing" mapstructure:"ticketing"`
	Notify     NotifyConfig     `yaml:"notify" mapstructure:"notify"`
	Events     EventsConfig     `yaml:"events" mapstructure:"events"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Circuit    CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
	Dispatch   DispatchConfig   `yaml:"dispatch" mapstructure:"dispatch"`
	QA         QAConfig         `yaml:"qa" mapstructure:"qa"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings for the classifier.
type AnthropicConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	Model          string  `yaml:"model" mapstructure:"model"`
	MaxTokens      int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	// Offline swaps the LLM for the keyword classifier.
	Offline bool `yaml:"offline" mapstructure:"offline"`
}

// RoutingConfig points at the team catalog. Empty uses the embedded one.
type RoutingConfig struct {
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"`
}

// TicketingConfig selects and configures the ticket tracker.
type TicketingConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	JiraBaseURL string `yaml:"jira_base_url" mapstructure:"jira_base_url"`
	JiraEmail   string `yaml:"jira_email" mapstructure:"jira_email"`
	JiraToken   string `yaml:"jira_token" mapstructure:"jira_token"`
	ProjectKey  string `yaml:"project_key" mapstructure:"project_key"`
	BrowseURL   string `yaml:"browse_url" mapstructure:"browse_url"`
}

// NotifyConfig configures notification transports.
type NotifyConfig struct {
	SlackToken  string `yaml:"slack_token" mapstructure:"slack_token"`
	SlackAPIURL string `yaml:"slack_api_url" mapstructure:"slack_api_url"`
	EmailFrom   string `yaml:"email_from" mapstructure:"email_from"`
	// TeamChannels sends team notifications to the Slack channel instead of
	// the team mailbox.
	TeamChannels bool `yaml:"team_channels" mapstructure:"team_channels"`
}

// EventsConfig configures the audit event stream. No brokers disables it.
type EventsConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// RetryConfig configures stage retries.
type RetryConfig struct {
	MaxAttempts      int            `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int            `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int            `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64        `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64        `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	StageTimeoutSecs int            `yaml:"stage_timeout_secs" mapstructure:"stage_timeout_secs"`
	StageAttempts    map[string]int `yaml:"stage_attempts" mapstructure:"stage_attempts"`
}

// CircuitConfig configures the per-stage circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// DispatchConfig configures the dispatcher.
type DispatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// QAConfig configures the QA gate.
type QAConfig struct {
	ExtraKeywords []string `yaml:"extra_keywords" mapstructure:"extra_keywords"`
}

// IngestConfig configures source feed loading.
type IngestConfig struct {
	DataDir      string `yaml:"data_dir" mapstructure:"data_dir"`
	PollSchedule string `yaml:"poll_schedule" mapstructure:"poll_schedule"`
}

// MonitoringConfig configures alert thresholds and delivery.
type MonitoringConfig struct {
	WebhookURL             string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold   float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	ReviewBacklogThreshold int     `yaml:"review_backlog_threshold" mapstructure:"review_backlog_threshold"`
	FailedBacklogThreshold int     `yaml:"failed_backlog_threshold" mapstructure:"failed_backlog_threshold"`
	CheckSchedule          string  `yaml:"check_schedule" mapstructure:"check_schedule"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COMPLAINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "complaints.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.requests_per_sec", 2.0)
	v.SetDefault("anthropic.offline", false)
	v.SetDefault("routing.catalog_path", "")
	v.SetDefault("ticketing.driver", "local")
	v.SetDefault("ticketing.jira_base_url", "")
	v.SetDefault("ticketing.jira_email", "")
	v.SetDefault("ticketing.jira_token", "")
	v.SetDefault("ticketing.project_key", "SUPORTE")
	v.SetDefault("ticketing.browse_url", "https://technova.atlassian.net/browse")
	v.SetDefault("notify.slack_token", "")
	v.SetDefault("notify.slack_api_url", "")
	v.SetDefault("notify.email_from", "atendimento@technova.com.br")
	v.SetDefault("notify.team_channels", false)
	v.SetDefault("events.brokers", []string{})
	v.SetDefault("events.topic", "complaint-events")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("retry.stage_timeout_secs", 60)
	v.SetDefault("retry.stage_attempts", map[string]int{})
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)
	v.SetDefault("dispatch.max_concurrent", 4)
	v.SetDefault("qa.extra_keywords", []string{})
	v.SetDefault("ingest.data_dir", "data")
	v.SetDefault("ingest.poll_schedule", "@every 5m")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.2)
	v.SetDefault("monitoring.review_backlog_threshold", 10)
	v.SetDefault("monitoring.failed_backlog_threshold", 10)
	v.SetDefault("monitoring.check_schedule", "@every 15m")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "process" (anything that runs stages), "serve" and "read" (store-only
// commands).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "read":
	case "process", "serve":
		errs = append(errs, c.validateProcess()...)
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateProcess() []string {
	var errs []string
	if !c.Anthropic.Offline && c.Anthropic.Key == "" {
		errs = append(errs, "anthropic.key is required unless anthropic.offline is set")
	}
	switch c.Ticketing.Driver {
	case "local":
	case "jira":
		if c.Ticketing.JiraBaseURL == "" {
			errs = append(errs, "ticketing.jira_base_url is required")
		}
		if c.Ticketing.JiraEmail == "" {
			errs = append(errs, "ticketing.jira_email is required")
		}
		if c.Ticketing.JiraToken == "" {
			errs = append(errs, "ticketing.jira_token is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("ticketing.driver must be local or jira, got %q", c.Ticketing.Driver))
	}
	if c.Dispatch.MaxConcurrent < 1 || c.Dispatch.MaxConcurrent > 64 {
		errs = append(errs, fmt.Sprintf("dispatch.max_concurrent must be between 1 and 64, got %d", c.Dispatch.MaxConcurrent))
	}
	if c.Retry.JitterFraction < 0 || c.Retry.JitterFraction > 1 {
		errs = append(errs, fmt.Sprintf("retry.jitter_fraction must be between 0 and 1, got %f", c.Retry.JitterFraction))
	}
	for stage, n := range c.Retry.StageAttempts {
		if n < 0 {
			errs = append(errs, fmt.Sprintf("retry.stage_attempts.%s must be >= 0", stage))
		}
	}
	return errs
}

// RetryPolicy builds the stage retry policy.
func (c *Config) RetryPolicy() resilience.Policy {
	base := resilience.FromRetryConfig(
		c.Retry.MaxAttempts,
		c.Retry.InitialBackoffMs,
		c.Retry.MaxBackoffMs,
		c.Retry.Multiplier,
		c.Retry.JitterFraction,
	)
	return resilience.NewPolicy(base, c.Retry.StageTimeoutSecs, c.Retry.StageAttempts)
}

// Breakers builds the per-stage circuit breakers.
func (c *Config) Breakers() *resilience.Breakers {
	return resilience.NewBreakers(resilience.FromCircuitConfig(c.Circuit.FailureThreshold, c.Circuit.ResetTimeoutSecs))
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
