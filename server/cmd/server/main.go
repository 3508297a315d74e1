package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/radartrack/radartrack/pkg/wire"
	"github.com/radartrack/radartrack/server/internal/alerts"
	"github.com/radartrack/radartrack/server/internal/api"
	"github.com/radartrack/radartrack/server/internal/config"
	"github.com/radartrack/radartrack/server/internal/metrics"
	"github.com/radartrack/radartrack/server/internal/receiver"
	"github.com/radartrack/radartrack/server/internal/tracker"
	"github.com/radartrack/radartrack/server/internal/ws"
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
	level.Set(parseLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("radartrack-server starting",
		"config", *configPath,
		"udp_port", cfg.Server.UDPPort,
		"grpc_port", cfg.Server.GRPCPort,
		"http_port", cfg.Server.HTTPPort,
		"processing_interval", cfg.Server.Tracking.ProcessingInterval,
		"expiry_window", cfg.Server.Tracking.ExpiryWindow,
		"admission_signal_threshold", cfg.Server.Tracking.AdmissionSignalThreshold,
	)

	if err := run(cfg, *configPath, level); err != nil {
		slog.Error("radartrack-server stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("radartrack-server shut down")
}

func run(cfg *config.Config, configPath string, level *slog.LevelVar) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	alertEngine, err := alerts.New(cfg.Server.Alerts)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	tr := tracker.New(cfg.Server.Tracking, func(r tracker.CycleReport) { m.ObserveCycle(r) })
	m = metrics.New(tr)

	udp := receiver.NewUDP(tr)
	rpc := receiver.NewGRPC(tr)
	m.AddReceiver("udp", udp.Stats)
	m.AddReceiver("grpc", rpc.Stats)

	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		receiver.RecoveryInterceptor(),
		receiver.StationInterceptor(),
	))
	wire.RegisterObservationServiceServer(grpcSrv, rpc)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen grpc port %d: %w", cfg.Server.GRPCPort, err)
	}

	hub := ws.New(tr, cfg.Server.StreamInterval)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(tr, alertEngine))
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", m.Handler())

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tr.Run(gctx)
		return nil
	})
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		alertEngine.Run(gctx, cfg.Server.Alerts.EvaluateInterval, func() alerts.Sample {
			return alerts.Sample{Health: tr.Health(), Stats: tr.Statistics()}
		})
		return nil
	})
	if cfg.Server.UDPPort > 0 {
		g.Go(func() error {
			return udp.ListenAndServe(gctx, fmt.Sprintf(":%d", cfg.Server.UDPPort))
		})
	}
	g.Go(func() error {
		slog.Info("gRPC receiver listening", "port", cfg.Server.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	if configPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, configPath, func(c *config.Config) {
				tr.Reconfigure(c.Server.Tracking)
				level.Set(parseLevel(c.Server.LogLevel))
				slog.Info("tracking thresholds reloaded",
					"admission_signal_threshold", c.Server.Tracking.AdmissionSignalThreshold,
					"max_stored_targets", c.Server.Tracking.Health.MaxStoredTargets,
					"max_queue_depth", c.Server.Tracking.Health.MaxQueueDepth,
				)
			})
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("radartrack-server shutting down")
		grpcSrv.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
