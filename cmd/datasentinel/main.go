package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/audit"
	"github.com/raaihank/data-sentinel/internal/cache"
	"github.com/raaihank/data-sentinel/internal/config"
	"github.com/raaihank/data-sentinel/internal/detect"
	"github.com/raaihank/data-sentinel/internal/events"
	"github.com/raaihank/data-sentinel/internal/logger"
	"github.com/raaihank/data-sentinel/internal/pipeline"
	"github.com/raaihank/data-sentinel/internal/policy"
	"github.com/raaihank/data-sentinel/internal/server"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("Data-Sentinel %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}
	if *healthCheck {
		performHealthCheck()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Data-Sentinel",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("port", cfg.Server.Port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err := buildRegistry(cfg, log)
	if err != nil {
		log.Fatal("Failed to build detector registry", zap.Error(err))
	}

	store, stopWatch, err := buildPolicyStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to load policy", zap.Error(err))
	}
	defer close(stopWatch)

	hub := events.NewHub(log)
	sink, err := buildAuditSink(cfg, hub, log)
	if err != nil {
		log.Fatal("Failed to open audit sinks", zap.Error(err))
	}
	defer sink.Close()

	orch := pipeline.New(registry, store, sink, log)
	if cfg.Cache.Enabled {
		resultCache, err := cache.NewResultCache(&cfg.Cache, log)
		if err != nil {
			log.Warn("Result cache unavailable, continuing without it", zap.Error(err))
		} else {
			defer resultCache.Close()
			orch.WithCache(resultCache)
		}
	}

	srv := server.New(cfg, orch, registry, store, hub, log)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start(ctx)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		if err := srv.Stop(stopCtx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}
		log.Info("Server shutdown complete")
	}
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	lc := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File != "" {
		lc.File = &logger.FileConfig{Enabled: true, Path: cfg.Logging.File}
	}
	return logger.New(lc)
}

func buildRegistry(cfg *config.Config, log *logger.Logger) (*detect.Registry, error) {
	registry := detect.DefaultRegistry(log)
	if cfg.Detectors.Workers > 0 {
		registry.SetWorkers(cfg.Detectors.Workers)
	}
	if cfg.Detectors.EntropyThreshold > 0 || cfg.Detectors.EntropyMinLength > 0 {
		registry.Unregister("high_entropy_token")
		if err := registry.Register(detect.NewEntropyDetector(cfg.Detectors.EntropyThreshold, cfg.Detectors.EntropyMinLength)); err != nil {
			return nil, err
		}
	}
	for _, id := range cfg.Detectors.Disabled {
		registry.Unregister(id)
		log.Info("detector disabled", zap.String("detector", id))
	}
	return registry, nil
}

func buildPolicyStore(cfg *config.Config, log *logger.Logger) (*policy.Store, chan struct{}, error) {
	var (
		model *policy.Model
		err   error
	)
	if cfg.Policy.File != "" {
		model, err = policy.Load(cfg.Policy.File)
	} else {
		model, err = policy.Builtin(cfg.Policy.Name)
	}
	if err != nil {
		return nil, nil, err
	}

	store := policy.NewStore(model, log)
	stop := make(chan struct{})
	if cfg.Policy.File != "" && cfg.Policy.Watch {
		if err := store.Watch(cfg.Policy.File, stop); err != nil {
			close(stop)
			return nil, nil, err
		}
	}
	return store, stop, nil
}

func buildAuditSink(cfg *config.Config, hub *events.Hub, log *logger.Logger) (audit.Sink, error) {
	var sinks []audit.Sink

	if cfg.Audit.JSONL.Enabled {
		s, err := audit.NewJSONLSink(cfg.Audit.JSONL.Path, log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Audit.Parquet.Enabled {
		s, err := audit.NewParquetSink(cfg.Audit.Parquet.Path, log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Audit.Postgres.Enabled {
		s, err := audit.NewPostgresSink(&cfg.Audit.Postgres.PostgresConfig, log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Events.Enabled {
		sinks = append(sinks, events.NewSink(hub))
	}
	if len(sinks) == 0 {
		sinks = append(sinks, audit.NewMemorySink())
	}
	return audit.NewFanout(sinks...), nil
}

func performHealthCheck() {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}
	fmt.Println("Health check passed")
}
