package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/config"
	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/db"
	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/game"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL, "stellar-worker")
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	catalog, err := game.LoadCatalog(cfg.BalanceFile)
	if err != nil {
		logger.Error("load balance catalog failed", "err", err)
		os.Exit(1)
	}
	svc := game.NewService(pool, logger, catalog, game.ServiceOptions{})

	if cfg.RunOnce {
		if _, err := svc.RunTurnSweep(ctx); err != nil {
			logger.Error("turn sweep failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.SweepEvery)
	defer ticker.Stop()

	logger.Info("worker started", "sweep_every", cfg.SweepEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			if _, err := svc.RunTurnSweep(ctx); err != nil {
				logger.Error("turn sweep failed", "err", err)
				continue
			}
		}
	}
}
