package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
agent:
  transport: grpc
  grpc_endpoint: "radar-core:50051"
  station_id: RADAR-007
  emit_interval: 250ms
  initial_targets: 3
  max_targets: 8
  seed: 42
  buffer_size: 200
  batch_size: 20
  probe:
    metrics_url: "http://radar-core:8080/metrics"
    max_queue_depth: 400
`
	cfg := loadFromString(t, yaml)
	a := cfg.Agent

	if a.Transport != "grpc" {
		t.Errorf("transport: got %q", a.Transport)
	}
	if a.GRPCEndpoint != "radar-core:50051" {
		t.Errorf("grpc_endpoint: got %q", a.GRPCEndpoint)
	}
	if a.StationID != "RADAR-007" {
		t.Errorf("station_id: got %q", a.StationID)
	}
	if a.EmitInterval != 250*time.Millisecond {
		t.Errorf("emit_interval: got %v", a.EmitInterval)
	}
	if a.InitialTargets != 3 || a.MaxTargets != 8 {
		t.Errorf("targets: got %d/%d, want 3/8", a.InitialTargets, a.MaxTargets)
	}
	if a.Seed != 42 {
		t.Errorf("seed: got %d", a.Seed)
	}
	if a.BufferSize != 200 || a.BatchSize != 20 {
		t.Errorf("buffer/batch: got %d/%d", a.BufferSize, a.BatchSize)
	}
	if !a.Probe.Enabled() {
		t.Error("probe should be enabled when metrics_url is set")
	}
	if a.Probe.Interval != DefaultProbeInterval {
		t.Errorf("probe interval: got %v, want default %v", a.Probe.Interval, DefaultProbeInterval)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFromString(t, "agent: {}\n")
	a := cfg.Agent

	if a.Transport != DefaultTransport {
		t.Errorf("default transport: got %q, want %q", a.Transport, DefaultTransport)
	}
	if a.UDPEndpoint != DefaultUDPEndpoint {
		t.Errorf("default udp_endpoint: got %q", a.UDPEndpoint)
	}
	if a.EmitInterval != DefaultEmitInterval {
		t.Errorf("default emit_interval: got %v, want %v", a.EmitInterval, DefaultEmitInterval)
	}
	if a.InitialTargets != DefaultInitialTargets || a.MaxTargets != DefaultMaxTargets {
		t.Errorf("default targets: got %d/%d", a.InitialTargets, a.MaxTargets)
	}
	if a.SpawnProbability != DefaultSpawnProbability {
		t.Errorf("default spawn_probability: got %v", a.SpawnProbability)
	}
	if a.StationID != DefaultStationID {
		t.Errorf("default station_id: got %q", a.StationID)
	}
	if a.Probe.Enabled() {
		t.Error("probe should be disabled by default")
	}
}

func TestLoad_IgnoresServerSection(t *testing.T) {
	yaml := `
server:
  http_port: 9999
agent:
  station_id: RADAR-002
`
	cfg := loadFromString(t, yaml)
	if cfg.Agent.StationID != "RADAR-002" {
		t.Errorf("station_id: got %q", cfg.Agent.StationID)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown transport", "agent:\n  transport: carrier-pigeon\n"},
		{"unknown log level", "agent:\n  log_level: loud\n"},
		{"missing udp endpoint", "agent:\n  udp_endpoint: \"\"\n"},
		{"missing grpc endpoint", "agent:\n  transport: grpc\n  grpc_endpoint: \"\"\n"},
		{"zero emit interval", "agent:\n  emit_interval: 0s\n"},
		{"max below initial", "agent:\n  initial_targets: 10\n  max_targets: 4\n"},
		{"spawn probability above one", "agent:\n  spawn_probability: 1.5\n"},
		{"zero buffer", "agent:\n  buffer_size: 0\n"},
		{"zero batch", "agent:\n  batch_size: 0\n"},
		{"negative rate", "agent:\n  rate_limit: -1\n"},
		{"probe without ceiling", "agent:\n  probe:\n    metrics_url: http://x/metrics\n"},
		{"bad yaml", "agent: [unterminated\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := loadStringErr(t, tc.yaml); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := validate(Default()); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return Load(path)
}
