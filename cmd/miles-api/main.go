// Package main provides the CLI entry point for the miles-api service.
// It handles flag parsing, service initialization, and HTTP server setup.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/merakimiles/alerts/internal/config"
	"github.com/merakimiles/alerts/internal/database"
	"github.com/merakimiles/alerts/internal/handlers"
	"github.com/merakimiles/alerts/internal/imagecache"
	"github.com/merakimiles/alerts/internal/metrics"
	"github.com/merakimiles/alerts/internal/producer"
	"github.com/merakimiles/alerts/internal/router"
	"github.com/merakimiles/alerts/internal/stream"
)

func main() {
	// Initialize structured logger with JSON output
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// Flag defaults come from the environment; the vendor's original
	// env names are kept as fallbacks for drop-in deployment.
	cfg := &config.Config{}
	flag.StringVar(&cfg.HTTPPort, "http-port", config.GetEnvOrFallback("8080", "PORT", "MILES_PORT"), "HTTP server port")
	flag.StringVar(&cfg.SharedSecret, "shared-secret", config.GetEnvOrFallback("", "MILES_SHARED_SECRET", "MERAKI_SHARED_SECRET"), "Webhook shared secret carried in the payload body")
	flag.StringVar(&cfg.HeaderName, "header-name", config.GetEnvOrFallback("", "MILES_HEADER_NAME", "MERAKI_HEADER_NAME"), "Header name checked for the expected secret value")
	flag.StringVar(&cfg.ExpectedHeaderValue, "expected-header-value", config.GetEnvOrFallback("", "MILES_EXPECTED_HEADER_VALUE", "MERAKI_EXPECTED_HEADER_VALUE"), "Expected value of the secret header")
	flag.StringVar(&cfg.AdminToken, "admin-token", config.GetEnvOrFallback("", "MILES_ADMIN_TOKEN", "ADMIN_TOKEN"), "Bearer token for admin endpoints")
	flag.StringVar(&cfg.IPAllowlist, "ip-allowlist", config.GetEnvOrFallback("", "MILES_WEBHOOK_IP_ALLOWLIST", "WEBHOOK_IP_ALLOWLIST"), "Comma-separated webhook IP allowlist (empty allows all)")
	flag.StringVar(&cfg.DatabaseURL, "database-url", config.GetEnvOrDefault("DATABASE_URL", "file:miles.db"), "Store DSN: Postgres URL or file:/sqlite: path")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", config.GetEnvOrDefault("REDIS_ADDR", ""), "Redis address for service metrics snapshots (empty disables)")
	flag.StringVar(&cfg.KafkaBrokers, "kafka-brokers", config.GetEnvOrDefault("KAFKA_BROKERS", ""), "Kafka brokers for the event mirror (empty disables)")
	flag.StringVar(&cfg.EventsTopic, "events-topic", config.GetEnvOrDefault("EVENTS_TOPIC", "alerts.events"), "Kafka topic for mirrored events")
	flag.Parse()

	slog.Info("Starting miles-api",
		"http_port", cfg.HTTPPort,
		"database_url", config.MaskDSN(cfg.DatabaseURL),
		"file_store", cfg.IsFileStore(),
		"ip_allowlist", cfg.AllowedIPs(),
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
	)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	// Initialize the event store
	db, err := database.NewDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to event store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		slog.Error("Failed to ensure event store schema", "error", err)
		os.Exit(1)
	}

	// Optional service metrics collector
	var collector *metrics.Collector
	if cfg.RedisAddr != "" {
		redisClient, err := metrics.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		collector = metrics.NewCollector("miles-api", redisClient)
		collector.Start(ctx)
		defer collector.Stop()
	}

	// Optional Kafka event mirror
	var opts []handlers.Option
	if cfg.KafkaBrokers != "" {
		mirror, err := producer.NewProducer(cfg.KafkaBrokers, cfg.EventsTopic)
		if err != nil {
			slog.Error("Failed to create Kafka event mirror", "error", err)
			os.Exit(1)
		}
		defer mirror.Close()
		opts = append(opts, handlers.WithMirror(mirror))
	}

	hub := stream.NewHub()
	images := imagecache.New(nil, imagecache.DefaultTTL)

	h := handlers.NewHandlers(db, hub, images, cfg, collector, opts...)
	server := router.NewServer(cfg.HTTPPort, h, collector)

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down HTTP server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error shutting down server", "error", err)
		}
		slog.Info("HTTP server stopped")
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
		os.Exit(1)
	}

	slog.Info("miles-api stopped")
}
