package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/certen/trust-graph/pkg/config"
	"github.com/certen/trust-graph/pkg/database"
	"github.com/certen/trust-graph/pkg/graph"
	"github.com/certen/trust-graph/pkg/metrics"
	"github.com/certen/trust-graph/pkg/server"
)

func main() {
	logger := log.New(log.Writer(), "[TrustGraphService] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	storage, cleanup, err := buildStorage(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}
	defer cleanup()

	g := graph.New(storage)
	registry := metrics.NewRegistry()

	handlers, err := server.NewTrustHandlers(g, cfg.OwnerID, cfg.HostID, registry, nil)
	if err != nil {
		logger.Fatalf("Failed to initialize handlers: %v", err)
	}

	srv := server.NewServer(cfg.ListenAddr, handlers, registry, nil)

	// Metrics on a separate listener
	metricsSrv := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: registry.Handler(),
	}
	go func() {
		logger.Printf("Metrics listening on %s", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("Metrics server error: %v", err)
		}
	}()

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Println("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Server shutdown error: %v", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Metrics shutdown error: %v", err)
	}
}

// buildStorage wires the configured storage backend. The cleanup function
// is a no-op for the in-memory backend.
func buildStorage(cfg *config.Config, logger *log.Logger) (graph.Storage, func(), error) {
	switch cfg.StorageBackend {
	case "memory":
		logger.Println("Using in-memory storage")
		return graph.NewInMemoryStorage(), func() {}, nil

	default:
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		client, err := database.Open(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Migrate(ctx); err != nil {
			client.Close()
			return nil, nil, err
		}

		return database.NewSQLStorage(client), func() { client.Close() }, nil
	}
}
