package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/radartrack/radartrack/agent/internal/config"
	"github.com/radartrack/radartrack/agent/internal/probe"
	"github.com/radartrack/radartrack/agent/internal/shipper"
	"github.com/radartrack/radartrack/agent/internal/simulator"
)

func main() {
	configPath := flag.String("config", "", "path to config file; built-in defaults when empty")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.Agent.LogLevel))
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(cfg, *configPath, level); err != nil {
		slog.Error("radartrack-agent stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("radartrack-agent shut down")
}

func run(cfg *config.Config, configPath string, level *slog.LevelVar) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := cfg.Agent
	sim := simulator.New(simulator.Options{
		InitialTargets:   a.InitialTargets,
		MaxTargets:       a.MaxTargets,
		SpawnProbability: a.SpawnProbability,
		StationID:        a.StationID,
		Seed:             a.Seed,
	})

	slog.Info("radartrack-agent starting",
		"run_id", sim.RunID(),
		"config", configPath,
		"transport", a.Transport,
		"station_id", a.StationID,
		"emit_interval", a.EmitInterval,
		"targets", sim.Len(),
	)

	g, gctx := errgroup.WithContext(ctx)

	var sender shipper.Sender
	switch a.Transport {
	case "grpc":
		gs := shipper.NewGRPC(shipper.GRPCOptions{
			Endpoint:   a.GRPCEndpoint,
			StationID:  a.StationID,
			BufferSize: a.BufferSize,
			BatchSize:  a.BatchSize,
		})
		g.Go(func() error {
			gs.Run(gctx)
			return nil
		})
		sender = gs
	default:
		us, err := shipper.NewUDP(a.UDPEndpoint, a.StationID, a.RateLimit)
		if err != nil {
			return err
		}
		defer us.Close()
		sender = us
	}

	var pr *probe.Probe
	if a.Probe.Enabled() {
		pr = probe.New(a.Probe.MetricsURL, a.Probe.MaxQueueDepth)
		g.Go(func() error {
			pr.Run(gctx, a.Probe.Interval)
			return nil
		})
	}

	var interval atomic.Int64
	interval.Store(int64(a.EmitInterval))

	g.Go(func() error {
		return emit(gctx, sim, sender, pr, &interval)
	})
	if configPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, configPath, func(c *config.Config) {
				interval.Store(int64(c.Agent.EmitInterval))
				sim.SetMaxTargets(c.Agent.MaxTargets)
				level.Set(parseLevel(c.Agent.LogLevel))
				slog.Info("emission settings reloaded",
					"emit_interval", c.Agent.EmitInterval,
					"max_targets", c.Agent.MaxTargets,
				)
			})
		})
	}

	err := g.Wait()
	st := sender.Stats()
	slog.Info("radartrack-agent shutting down",
		"run_id", sim.RunID(), "sent", st.Sent, "failed", st.Failed, "evicted", st.Evicted)
	return err
}

// emit steps the simulator every interval and hands the result to sender.
// A step is skipped while the probe reports backpressure.
func emit(ctx context.Context, sim *simulator.Simulator, sender shipper.Sender, pr *probe.Probe, interval *atomic.Int64) error {
	current := time.Duration(interval.Load())
	ticker := time.NewTicker(current)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if d := time.Duration(interval.Load()); d != current {
				current = d
				ticker.Reset(d)
			}
			if pr != nil && pr.Paused() {
				slog.Debug("emission paused by backpressure", "queue_depth", pr.LastDepth())
				continue
			}
			obs := sim.Step(now.UTC())
			if err := sender.Ship(ctx, obs); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Warn("ship failed", "targets", len(obs), "err", err)
				continue
			}
			slog.Debug("sent targets", "count", len(obs))
		}
	}
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
