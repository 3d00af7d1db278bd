package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/gateway"
	"github.com/radieske/sports-bankroll-platform/internal/shared/config"
	"github.com/radieske/sports-bankroll-platform/internal/shared/logger"
	"github.com/radieske/sports-bankroll-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "api-gateway"
	}

	log, err := logger.NewWithFile(cfg.ServiceName, cfg.Env, logger.FileOptions{Path: cfg.LogFile})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	h, err := gateway.Router(gateway.Targets{
		Odds:   cfg.OddsURL,
		Wallet: cfg.WalletURL,
		Bets:   cfg.BetURL,
		Jobs:   cfg.JobsURL,
	}, log)
	if err != nil {
		log.Fatal("gateway routes", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, metrics.All())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("api-gateway listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("gateway failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
