package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/bet-service/betting"
	"github.com/radieske/sports-bankroll-platform/internal/bet-service/producer"
	"github.com/radieske/sports-bankroll-platform/internal/scheduler/jobs"
	"github.com/radieske/sports-bankroll-platform/internal/shared/config"
	"github.com/radieske/sports-bankroll-platform/internal/shared/db"
	"github.com/radieske/sports-bankroll-platform/internal/shared/logger"
	"github.com/radieske/sports-bankroll-platform/internal/shared/metrics"
	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
	"github.com/radieske/sports-bankroll-platform/internal/wallet-service/ledger"
)

// Worker que roda settle_bets na cadência configurada
func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "bet-settlement-worker"
	}

	log, err := logger.NewWithFile(cfg.ServiceName, cfg.Env, logger.FileOptions{Path: cfg.LogFile})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	st := store.NewPostgres(pg)

	pub := producer.NewForTopics(cfg.KafkaBrokers, cfg.TopicBetPlaced, cfg.TopicBetSettled, cfg.TopicBetCanceled)
	defer pub.Close()

	settled := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_bets_total", Help: "apostas liquidadas por desfecho"}, []string{"outcome"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_runs_total", Help: "execuções do job por status"}, []string{"status"})
	prometheus.MustRegister(settled, runs)

	svc := betting.NewService(st, ledger.NewService(st, log), pub, log)
	svc.OnSettled = func(o betting.Outcome) { settled.WithLabelValues(string(o)).Inc() }

	runner := jobs.NewRunner(st, nil, svc, nil, log)
	runner.OnRun = func(_, status string) { runs.WithLabelValues(status).Inc() }

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, st.Ping)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("settlement worker started", zap.Duration("every", cfg.CadenceSettle))
	runner.Schedule(ctx, jobs.Cadences{Settle: cfg.CadenceSettle, StartupDelay: -1})

	log.Info("settlement worker stopped")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
}
