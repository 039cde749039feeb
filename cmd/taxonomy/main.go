// Package main is the entry point for the taxonomy server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"taxonomy/internal/cache"
	"taxonomy/internal/config"
	"taxonomy/internal/database"
	"taxonomy/internal/handlers"
	"taxonomy/internal/middleware"
	"taxonomy/internal/router"
	"taxonomy/internal/store"
	"taxonomy/internal/tree"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON everywhere else.
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"store", cfg.StoreDriver,
		"max_depth", cfg.MaxDepth,
		"max_children", cfg.MaxChildren,
	)

	ctx := context.Background()

	// Select the category store.
	var nodes tree.NodeStore
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		slog.Warn("using in-memory category store, data is lost on restart")
		nodes = store.NewMemoryStore()
	default:
		db := mustConnectDB(ctx, cfg)
		defer db.Close()
		nodes = store.NewCategoryStore(db)
	}

	svc := tree.NewService(nodes, tree.Limits{
		MaxDepth:    cfg.MaxDepth,
		MaxChildren: cfg.MaxChildren,
	})

	if cfg.ReconcileOnStart {
		repaired, err := svc.Reconcile(ctx)
		if err != nil {
			slog.Error("failed to reconcile category links", "error", err)
			os.Exit(1)
		}
		slog.Info("category links reconciled", "repaired", repaired)
	}

	// Seed development data (no-op if categories already exist).
	if cfg.IsDev() {
		if err := database.Seed(ctx, svc); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey for the listing cache (optional).
	var listings *cache.ListingCache
	if cfg.CacheEnabled() {
		var valkeyClient *redis.Client
		valkeyClient, err = cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer valkeyClient.Close()
		listings = cache.NewListingCache(valkeyClient, cfg.CacheTTL)
	} else {
		slog.Warn("listing cache disabled")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	r := router.New(handlers.NewCategories(svc, listings), limiter, cfg.TrustProxyHeaders)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// mustConnectDB connects to PostgreSQL and applies migrations, exiting on failure.
func mustConnectDB(ctx context.Context, cfg *config.Config) *sql.DB {
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	return db
}
