package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/punchamoorthee/ledgerops/internal/config"
	"github.com/punchamoorthee/ledgerops/internal/store"
)

func main() {
	total := flag.Int("accounts", 1000, "Number of demo accounts")
	balance := flag.Int64("balance", 10000, "Opening balance per account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)

	ctx := context.Background()
	backend, err := store.Open(ctx, cfg.StoreDriver, cfg.DBSource, cfg.DBLogLevel)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	logger.Info("seeding database", "driver", cfg.StoreDriver)

	if err := backend.Migrate(ctx); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	count, err := backend.CountAccounts(ctx)
	if err != nil {
		logger.Error("count failed", "error", err)
		os.Exit(1)
	}
	if count >= int64(*total) {
		logger.Info("database already seeded, skipping", "accounts", count)
		return
	}
	if count > 0 {
		logger.Error("database partially seeded, refusing to insert duplicates", "accounts", count)
		os.Exit(1)
	}

	n, err := backend.SeedAccounts(ctx, store.DemoAccounts(*total, *balance))
	if err != nil {
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seeded accounts", "count", n, "first", store.DemoAccountNumber(1), "password", store.DemoPassword)
}
