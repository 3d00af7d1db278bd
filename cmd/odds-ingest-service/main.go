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

	"github.com/radieske/sports-bankroll-platform/internal/bet-service/betting"
	"github.com/radieske/sports-bankroll-platform/internal/bet-service/producer"
	"github.com/radieske/sports-bankroll-platform/internal/odds-ingest/importer"
	"github.com/radieske/sports-bankroll-platform/internal/odds-ingest/provider"
	"github.com/radieske/sports-bankroll-platform/internal/odds-ingest/publisher"
	"github.com/radieske/sports-bankroll-platform/internal/odds-ingest/syncer"
	"github.com/radieske/sports-bankroll-platform/internal/scheduler/jobs"
	shttp "github.com/radieske/sports-bankroll-platform/internal/scheduler/http"
	"github.com/radieske/sports-bankroll-platform/internal/shared/config"
	"github.com/radieske/sports-bankroll-platform/internal/shared/db"
	"github.com/radieske/sports-bankroll-platform/internal/shared/kafka"
	"github.com/radieske/sports-bankroll-platform/internal/shared/logger"
	"github.com/radieske/sports-bankroll-platform/internal/shared/metrics"
	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
	"github.com/radieske/sports-bankroll-platform/internal/wallet-service/ledger"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "odds-ingest-service"
	}

	log, err := logger.NewWithFile(cfg.ServiceName, cfg.Env, logger.FileOptions{Path: cfg.LogFile})
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("kafka brokers", zap.String("brokers", cfg.KafkaBrokers))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	st := store.NewPostgres(pg)

	client, err := provider.NewClient(provider.Config{
		BaseURL: cfg.OddsAPIBaseURL,
		APIKey:  cfg.OddsAPIKey,
		Timeout: cfg.OddsAPITimeout,
	})
	if err != nil {
		log.Fatal("odds api client", zap.Error(err))
	}

	// tópico só é criado explicitamente em local/dev
	if cfg.Env == "local" || cfg.Env == "dev" {
		if err := publisher.EnsureTopic(ctx, kafka.SplitBrokers(cfg.KafkaBrokers), cfg.TopicOddsUpdates, log); err != nil {
			log.Warn("ensure topic failed", zap.Error(err))
		}
	}
	oddsPub := publisher.NewKafkaPublisher(kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicOddsUpdates), log)
	defer oddsPub.Close()

	imp := importer.New(st, oddsPub, log)
	oddsSync := syncer.New(client, imp, syncer.Config{
		Regions:      cfg.SyncRegions,
		Markets:      cfg.SyncMarkets,
		RequestDelay: cfg.SyncRequestDelay,
		RetryBase:    cfg.SyncRetryBase,
		MaxRetries:   cfg.SyncMaxRetries,
	}, log)

	// settle_bets também pode ser disparado por aqui
	betPub := producer.NewForTopics(cfg.KafkaBrokers, cfg.TopicBetPlaced, cfg.TopicBetSettled, cfg.TopicBetCanceled)
	defer betPub.Close()
	bets := betting.NewService(st, ledger.NewService(st, log), betPub, log)

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ingest_job_runs_total", Help: "execuções de jobs por status"}, []string{"job", "status"})
	remaining := prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "odds_api_requests_remaining", Help: "cota restante informada pelo provedor (-1 = desconhecida)"},
		func() float64 { return float64(client.RequestsRemaining()) })
	prometheus.MustRegister(runs, remaining)

	runner := jobs.NewRunner(st, oddsSync, bets, cfg.SyncSports, log)
	runner.OnRun = func(job, status string) { runs.WithLabelValues(job, status).Inc() }

	api := shttp.NewServer(log, runner)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, st.Ping)

	go func() {
		log.Info("job api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	// liquidação periódica fica com o bet-settlement-worker
	runner.Schedule(ctx, jobs.Cadences{
		Live:         cfg.CadenceLive,
		Upcoming:     cfg.CadenceUpcoming,
		Distant:      cfg.CadenceDistant,
		StartupDelay: cfg.StartupSyncDelay,
	})

	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
