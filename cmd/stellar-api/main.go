package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/api"
	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/auth"
	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/config"
	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/db"
	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/game"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL, "stellar-api")
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

	gateway := auth.NewGatewayClient(cfg.SessionGatewayURL, cfg.SessionGatewayKey)
	gameSvc := game.NewService(pool, logger, catalog, game.ServiceOptions{
		LevelBracket: cfg.LevelBracketMax,
	})

	server := api.New(cfg, logger, gateway, gameSvc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("stellar api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
