package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/example/bankcore/internal/config"
	"github.com/example/bankcore/internal/seed"
	"github.com/example/bankcore/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	customers := flag.Int("customers", 25, "number of customers to generate")
	accounts := flag.Int("accounts", 2, "accounts per customer")
	randSeed := flag.Int64("seed", time.Now().UnixNano(), "random seed for generated data")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.OpenSQLite(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open store", "error", err, "database_url", cfg.DatabaseURL)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	tx, err := st.Begin(ctx)
	if err != nil {
		logger.Error("failed to begin unit of work", "error", err)
		os.Exit(1)
	}

	gen := seed.NewGenerator(cfg.SortCode, *randSeed)
	stats, err := gen.Generate(ctx, tx, *customers, *accounts)
	if err != nil {
		_ = tx.Rollback(ctx)
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
	if err := tx.Commit(ctx); err != nil {
		logger.Error("commit failed", "error", err)
		os.Exit(1)
	}

	logger.Info("seed complete", "customers", stats.Customers, "accounts", stats.Accounts)
}
