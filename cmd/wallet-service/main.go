package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/shared/cache"
	"github.com/radieske/sports-bankroll-platform/internal/shared/config"
	"github.com/radieske/sports-bankroll-platform/internal/shared/db"
	"github.com/radieske/sports-bankroll-platform/internal/shared/logger"
	"github.com/radieske/sports-bankroll-platform/internal/shared/metrics"
	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
	whttp "github.com/radieske/sports-bankroll-platform/internal/wallet-service/http"
	"github.com/radieske/sports-bankroll-platform/internal/wallet-service/ledger"
	"github.com/radieske/sports-bankroll-platform/internal/wallet-service/payment"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "wallet-service"
	}

	log, err := logger.NewWithFile(cfg.ServiceName, cfg.Env, logger.FileOptions{Path: cfg.LogFile})
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("env", cfg.Env))

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	st := store.NewPostgres(pg)

	// Redis só é necessário para as contas de papel persistentes
	health := []metrics.HealthFunc{st.Ping}
	var accounts payment.PaperAccounts
	if cfg.PaperAccountsBackend == payment.BackendRedis {
		rdb, err := cache.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
		health = append(health, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		accounts, err = payment.NewAccounts(cfg.PaperAccountsBackend, rdb)
		if err != nil {
			log.Fatal("paper accounts", zap.Error(err))
		}
	} else if accounts, err = payment.NewAccounts(cfg.PaperAccountsBackend, nil); err != nil {
		log.Fatal("paper accounts", zap.Error(err))
	}

	proc, err := payment.New(payment.Config{
		Name:            cfg.PaymentProcessor,
		Currency:        cfg.Currency,
		StartingBalance: cfg.PaperStartingBalance,
		Accounts:        accounts,
	})
	if err != nil {
		log.Fatal("payment processor", zap.Error(err))
	}

	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_operations_total",
		Help: "operações da banca por tipo e resultado",
	}, []string{"op", "result"})
	prometheus.MustRegister(ops)

	svc := ledger.NewService(st, log, proc)
	svc.OnResult = func(op string, success bool) {
		result := "rejected"
		if success {
			result = "success"
		}
		ops.WithLabelValues(op, result).Inc()
	}

	api := whttp.NewServer(log, svc, proc.Name())
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, metrics.All(health...))
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
