package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	redis "github.com/redis/go-redis/v9"

	"github.com/legaldoc/collabhub/internal/config"
	"github.com/legaldoc/collabhub/internal/hub"
	"github.com/legaldoc/collabhub/internal/presence"
	"github.com/legaldoc/collabhub/internal/publish"
	"github.com/legaldoc/collabhub/internal/registry"
	"github.com/legaldoc/collabhub/internal/server"
	"github.com/legaldoc/collabhub/internal/store"
	"github.com/legaldoc/collabhub/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/collabserver.local.yaml", "path to config file")
	flag.Parse()

	// Load configuration first so the log level can follow it.
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("starting collabserver",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"config", *configPath,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	var recorders []hub.AnnotationRecorder

	// Optional annotation store
	if cfg.Database.Enabled {
		logger.Info("connecting to annotation store",
			"host", cfg.Database.Host, "database", cfg.Database.Name)
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := store.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		st := store.New(pool, cfg.Database.QueueSize, logger)
		defer st.Close()
		recorders = append(recorders, st)
		logger.Info("annotation store connected")
	}

	// Optional Kafka publisher
	if cfg.Kafka.Enabled {
		producer, err := publish.NewSyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			logger.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		pub := publish.New(producer, cfg.Kafka.Topic, publish.Options{
			QueueSize:   cfg.Kafka.QueueSize,
			Workers:     cfg.Kafka.Workers,
			MaxRetry:    cfg.Kafka.MaxRetry,
			BaseBackoff: cfg.Kafka.BaseBackoff,
			MaxBackoff:  cfg.Kafka.MaxBackoff,
		}, logger)
		defer pub.Close()
		recorders = append(recorders, pub)
		logger.Info("kafka publisher started",
			"brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	// Optional presence mirror
	var mirror hub.PresenceMirror
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		mirror = presence.NewMirror(rdb, cfg.Redis.PresenceTTL)
		logger.Info("presence mirror connected", "addr", cfg.Redis.Addr)
	}

	reg := registry.New(cfg.Hub.RegistryShards)
	router := hub.NewRouter(reg, recorders, mirror, logger)
	gateway := hub.NewGateway(router, hub.GatewayConfig{
		SendQueueSize: cfg.Hub.SendQueueSize,
		IdleTimeout:   cfg.Hub.IdleTimeout,
	}, logger)

	srv := server.New(cfg.Server, gateway, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("collabserver running",
		"instance_id", cfg.Instance.ID,
		"addr", cfg.Server.Host, "port", cfg.Server.Port,
	)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown incomplete", "error", err)
	}

	logger.Info("collabserver stopped")
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
