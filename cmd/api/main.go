package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/punchamoorthee/ledgerops/internal/api"
	"github.com/punchamoorthee/ledgerops/internal/config"
	"github.com/punchamoorthee/ledgerops/internal/notifier"
	"github.com/punchamoorthee/ledgerops/internal/service"
	"github.com/punchamoorthee/ledgerops/internal/store"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := store.Open(ctx, cfg.StoreDriver, cfg.DBSource, cfg.DBLogLevel)
	if err != nil {
		logger.Error("unable to connect to database", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	if cfg.StoreDriver == config.DriverMemory {
		if _, err := backend.SeedAccounts(ctx, store.DemoAccounts(1000, 10000)); err != nil {
			logger.Error("seeding failed", "error", err)
			os.Exit(1)
		}
		logger.Warn("using in-memory store with demo accounts; data is lost on exit")
	}

	// Downstream mirrors
	sinks := notifier.Multi{
		notifier.NewHTTPNotifier(cfg.Sync.URL, &http.Client{Timeout: cfg.Sync.Timeout}, logger),
	}
	if cfg.Sync.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Sync.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, stream sync will fail until it recovers", "addr", cfg.Sync.RedisAddr, "error", err)
		}
		sinks = append(sinks, notifier.NewStreamNotifier(rdb, cfg.Sync.RedisStream, logger))
	}
	dispatcher := notifier.NewDispatcher(sinks, cfg.Sync.Timeout, logger)

	// Initialize Layers
	ledger := service.NewLedgerService(backend, dispatcher, logger)
	handler := api.NewHandler(ledger, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(handler, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "driver", cfg.StoreDriver, "sync_url", cfg.Sync.URL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	dispatcher.Wait()
}
