package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultLogLevel         = "info"
	DefaultTransport        = "udp"
	DefaultUDPEndpoint      = "127.0.0.1:5201"
	DefaultGRPCEndpoint     = "127.0.0.1:50051"
	DefaultStationID        = "RADAR-001"
	DefaultEmitInterval     = 500 * time.Millisecond
	DefaultInitialTargets   = 5
	DefaultMaxTargets       = 15
	DefaultSpawnProbability = 0.1
	DefaultBufferSize       = 1000
	DefaultBatchSize        = 50
	DefaultRateLimit        = 100
	DefaultProbeInterval    = 2 * time.Second
)

// Config is the agent's view of config.yaml. The `server:` key in the same
// file is ignored.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all simulator agent settings.
type AgentConfig struct {
	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// Transport selects how observations reach the server: udp | grpc.
	Transport string `yaml:"transport"`

	// UDPEndpoint is the server's datagram feed address (host:port).
	UDPEndpoint string `yaml:"udp_endpoint"`

	// GRPCEndpoint is the server's gRPC receiver address (host:port).
	GRPCEndpoint string `yaml:"grpc_endpoint"`

	// StationID is stamped on every packet as radarStationId.
	StationID string `yaml:"station_id"`

	// EmitInterval is the simulation step period. Reloadable.
	EmitInterval time.Duration `yaml:"emit_interval"`

	// InitialTargets is how many targets exist at start.
	InitialTargets int `yaml:"initial_targets"`

	// MaxTargets caps spawning. Reloadable.
	MaxTargets int `yaml:"max_targets"`

	// SpawnProbability is the per-step chance of a new target, in [0, 1].
	SpawnProbability float64 `yaml:"spawn_probability"`

	// Seed fixes the random source. 0 seeds from the clock.
	Seed int64 `yaml:"seed"`

	// BufferSize bounds the gRPC send buffer; the oldest packet is evicted
	// when it is full.
	BufferSize int `yaml:"buffer_size"`

	// BatchSize is the maximum number of packets per SubmitBatch call.
	BatchSize int `yaml:"batch_size"`

	// RateLimit caps datagrams per second on the UDP transport. 0 disables pacing.
	RateLimit float64 `yaml:"rate_limit"`

	// Probe configures the optional backpressure check against /metrics.
	Probe ProbeConfig `yaml:"probe"`
}

// ProbeConfig configures the server backpressure probe.
type ProbeConfig struct {
	// MetricsURL is the server's Prometheus endpoint. Empty disables the probe.
	MetricsURL string `yaml:"metrics_url"`

	// MaxQueueDepth pauses emission while the server's ingest queue is deeper.
	MaxQueueDepth float64 `yaml:"max_queue_depth"`

	// Interval is how often the probe scrapes.
	Interval time.Duration `yaml:"interval"`
}

// Enabled reports whether the probe should run.
func (p ProbeConfig) Enabled() bool {
	return p.MetricsURL != ""
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			LogLevel:         DefaultLogLevel,
			Transport:        DefaultTransport,
			UDPEndpoint:      DefaultUDPEndpoint,
			GRPCEndpoint:     DefaultGRPCEndpoint,
			StationID:        DefaultStationID,
			EmitInterval:     DefaultEmitInterval,
			InitialTargets:   DefaultInitialTargets,
			MaxTargets:       DefaultMaxTargets,
			SpawnProbability: DefaultSpawnProbability,
			BufferSize:       DefaultBufferSize,
			BatchSize:        DefaultBatchSize,
			RateLimit:        DefaultRateLimit,
			Probe: ProbeConfig{
				Interval: DefaultProbeInterval,
			},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := &cfg.Agent
	switch a.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("agent.log_level %q unknown: want debug|info|warn|error", a.LogLevel)
	}
	switch a.Transport {
	case "udp":
		if a.UDPEndpoint == "" {
			return fmt.Errorf("agent.udp_endpoint is required for udp transport")
		}
	case "grpc":
		if a.GRPCEndpoint == "" {
			return fmt.Errorf("agent.grpc_endpoint is required for grpc transport")
		}
	default:
		return fmt.Errorf("agent.transport %q unknown: want udp|grpc", a.Transport)
	}
	if a.EmitInterval <= 0 {
		return fmt.Errorf("agent.emit_interval must be positive")
	}
	if a.InitialTargets < 0 {
		return fmt.Errorf("agent.initial_targets must not be negative")
	}
	if a.MaxTargets < a.InitialTargets {
		return fmt.Errorf("agent.max_targets %d is below initial_targets %d", a.MaxTargets, a.InitialTargets)
	}
	if a.SpawnProbability < 0 || a.SpawnProbability > 1 {
		return fmt.Errorf("agent.spawn_probability %v is out of range [0, 1]", a.SpawnProbability)
	}
	if a.BufferSize <= 0 {
		return fmt.Errorf("agent.buffer_size must be positive")
	}
	if a.BatchSize <= 0 {
		return fmt.Errorf("agent.batch_size must be positive")
	}
	if a.RateLimit < 0 {
		return fmt.Errorf("agent.rate_limit must not be negative")
	}
	if a.Probe.Enabled() {
		if a.Probe.Interval <= 0 {
			return fmt.Errorf("agent.probe.interval must be positive")
		}
		if a.Probe.MaxQueueDepth <= 0 {
			return fmt.Errorf("agent.probe.max_queue_depth must be positive")
		}
	}
	return nil
}
