package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aidin1998/todokv/internal/config"
	"github.com/Aidin1998/todokv/internal/events"
	"github.com/Aidin1998/todokv/internal/kvstore"
	"github.com/Aidin1998/todokv/internal/server"
	"github.com/Aidin1998/todokv/internal/telemetry"
	"github.com/Aidin1998/todokv/internal/todo"
	"github.com/Aidin1998/todokv/pkg/logger"
	"github.com/Aidin1998/todokv/pkg/metrics"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	var paths []string
	if *configPath != "" {
		paths = append(paths, *configPath)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Tracing: cfg.Telemetry.Tracing,
		Metrics: cfg.Telemetry.Metrics,
	})
	if err != nil {
		zapLogger.Fatal("Failed to set up telemetry", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	backend, err := kvstore.Open(cfg.Store, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	provider := kvstore.NewProvider(backend, cfg.Store.Namespaces, m, zapLogger)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		kp, err := events.NewKafkaPublisher(cfg.Events.Kafka, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to create event publisher", zap.Error(err))
		}
		publisher = kp
	}

	handler := todo.NewHandler(provider, publisher, zapLogger, m)
	apiServer := server.NewServer(zapLogger, cfg, server.Deps{
		Todos:    handler,
		Health:   provider,
		Metrics:  m,
		Gatherer: reg,
	})

	zapLogger.Info("Todo API configured",
		zap.String("store", provider.Driver()),
		zap.Strings("namespaces", cfg.Store.Namespaces),
		zap.Bool("events", cfg.Events.Enabled))

	if err := apiServer.Run(ctx); err != nil {
		zapLogger.Error("API server failed", zap.Error(err))
	}

	handler.Wait()
	if err := publisher.Close(); err != nil {
		zapLogger.Error("Failed to close event publisher", zap.Error(err))
	}
	if err := provider.Close(); err != nil {
		zapLogger.Error("Failed to close store", zap.Error(err))
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTelemetry(flushCtx); err != nil {
		zapLogger.Error("Failed to flush telemetry", zap.Error(err))
	}

	zapLogger.Info("Server exited properly")
}
