// Package config loads and watches the agent section of config.yaml.
//
// Top-level types:
//   - Config{Agent}: the agent subtree parsed from YAML
//   - AgentConfig: transport (udp|grpc), endpoints, station_id, emit_interval,
//     initial/max targets, spawn_probability, seed, buffer_size, batch_size,
//     rate_limit, probe
//   - ProbeConfig: metrics_url, max_queue_depth, interval
//
// Load(path) reads the YAML file, applies defaults (udp to 127.0.0.1:5201,
// 500ms emission, 5 initial and 15 max targets), then validates.
//
// Watch(ctx, path, onChange) reloads on file change through pkg/filewatch.
// Only emit_interval and max_targets are applied to a running agent.
package config
