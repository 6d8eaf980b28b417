package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/example/bankcore/internal/api"
	"github.com/example/bankcore/internal/bank"
	"github.com/example/bankcore/internal/config"
	"github.com/example/bankcore/internal/credit"
	"github.com/example/bankcore/internal/store"
	"github.com/example/bankcore/pkg/audit"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	st, err := openStore(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open store", "error", err, "database_url", cfg.DatabaseURL)
		os.Exit(1)
	}
	defer st.Close()

	checker := credit.NewChecker(
		credit.WithAgencies(cfg.CreditAgencies),
		credit.WithTimeout(cfg.CreditTimeout),
	)

	svc := bank.NewService(cfg.SortCode, checker)
	auditor := audit.NewChainLogger()

	router := api.NewRouter(api.Dependencies{
		Logger:      logger,
		Store:       st,
		Bank:        svc,
		Auditor:     auditor,
		CompanyName: cfg.CompanyName,
		SeedSource:  func() int64 { return time.Now().UnixNano() },
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	logger.Info("bank engine listening", "addr", cfg.Addr, "sortcode", cfg.SortCode)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, databaseURL string) (store.Store, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		pg, err := store.OpenPostgres(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	}
	return store.OpenSQLite(databaseURL)
}
