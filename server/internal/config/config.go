package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/radartrack/radartrack/pkg/filewatch"
	"github.com/radartrack/radartrack/server/internal/tracker"
)

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	// EvaluateInterval is how often rules are checked (default 5s).
	EvaluateInterval time.Duration `yaml:"evaluate_interval"`

	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "queue_depth > 400",
	// "cycle_p95_ms > 40", "status == unhealthy".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultUDPPort          = 5201
	DefaultGRPCPort         = 50051
	DefaultHTTPPort         = 8080
	DefaultStreamInterval   = time.Second
	DefaultEvaluateInterval = 5 * time.Second
	DefaultLogLevel         = "info"
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The `agent:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// UDPPort is the datagram feed port (default 5201). 0 disables the listener.
	UDPPort int `yaml:"udp_port"`

	// GRPCPort is the port the gRPC receiver listens on (default 50051).
	GRPCPort int `yaml:"grpc_port"`

	// HTTPPort is the port the REST API, metrics and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// StreamInterval is the WebSocket broadcast period (default 1s).
	StreamInterval time.Duration `yaml:"stream_interval"`

	// Tracking tunes the ingest queue, processing cycle and health thresholds.
	Tracking tracker.Config `yaml:"tracking"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

// Watch reloads path on change and passes each valid Config to onChange.
// Only the tracking thresholds are meant to be applied at runtime; ports and
// alert rules take effect on restart.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	return filewatch.Watch(ctx, path, Load, onChange)
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			LogLevel:       DefaultLogLevel,
			UDPPort:        DefaultUDPPort,
			GRPCPort:       DefaultGRPCPort,
			HTTPPort:       DefaultHTTPPort,
			StreamInterval: DefaultStreamInterval,
			Tracking:       tracker.DefaultConfig(),
			Alerts: AlertsConfig{
				EvaluateInterval: DefaultEvaluateInterval,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := &cfg.Server
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}
	if s.UDPPort < 0 || s.UDPPort > 65535 {
		return fmt.Errorf("server.udp_port %d is out of range [0, 65535]", s.UDPPort)
	}
	if s.GRPCPort <= 0 || s.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [1, 65535]", s.GRPCPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	if s.StreamInterval <= 0 {
		return fmt.Errorf("server.stream_interval must be positive")
	}
	if s.Alerts.EvaluateInterval <= 0 {
		return fmt.Errorf("server.alerts.evaluate_interval must be positive")
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("server.alerts.webhooks[%d].type %q unknown: want slack|teams|http", i, w.Type)
		}
	}
	return validateTracking(&s.Tracking)
}

func validateTracking(t *tracker.Config) error {
	if t.ProcessingInterval <= 0 {
		return fmt.Errorf("server.tracking.processing_interval must be positive")
	}
	if t.ExpiryWindow <= 0 {
		return fmt.Errorf("server.tracking.expiry_window must be positive")
	}
	if t.ActiveWindow < 0 {
		return fmt.Errorf("server.tracking.active_window must not be negative")
	}
	if math.IsNaN(t.AdmissionSignalThreshold) || math.IsInf(t.AdmissionSignalThreshold, 0) {
		return fmt.Errorf("server.tracking.admission_signal_threshold must be finite")
	}
	if t.MaxBatchPerCycle <= 0 {
		return fmt.Errorf("server.tracking.max_batch_per_cycle must be positive")
	}
	if t.QueueCapacity <= 0 {
		return fmt.Errorf("server.tracking.queue_capacity must be positive")
	}
	if t.ThroughputWindow <= 0 {
		return fmt.Errorf("server.tracking.throughput_window must be positive")
	}
	h := t.Health
	if h.MaxStoredTargets <= 0 || h.MaxQueueDepth <= 0 {
		return fmt.Errorf("server.tracking.health ceilings must be positive")
	}
	if h.WarnStoredTargets < 0 || h.WarnStoredTargets > h.MaxStoredTargets {
		return fmt.Errorf("server.tracking.health.warn_stored_targets %d must be in [0, max_stored_targets]", h.WarnStoredTargets)
	}
	return nil
}
