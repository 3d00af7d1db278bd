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
	bhttp "github.com/radieske/sports-bankroll-platform/internal/bet-service/http"
	"github.com/radieske/sports-bankroll-platform/internal/bet-service/producer"
	"github.com/radieske/sports-bankroll-platform/internal/shared/config"
	"github.com/radieske/sports-bankroll-platform/internal/shared/db"
	"github.com/radieske/sports-bankroll-platform/internal/shared/logger"
	"github.com/radieske/sports-bankroll-platform/internal/shared/metrics"
	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
	"github.com/radieske/sports-bankroll-platform/internal/wallet-service/ledger"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "bet-service"
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

	// Kafka: um writer por tópico de aposta
	pub := producer.NewForTopics(cfg.KafkaBrokers, cfg.TopicBetPlaced, cfg.TopicBetSettled, cfg.TopicBetCanceled)
	defer pub.Close()

	placed := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bets_placed_total", Help: "apostas por resultado"}, []string{"result"})
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bets_settled_total", Help: "liquidações por desfecho"}, []string{"outcome"})
	prometheus.MustRegister(placed, settled)

	// lock/settle da banca rodam na mesma transação da aposta; nenhum
	// processador de pagamento é usado aqui
	l := ledger.NewService(st, log)
	svc := betting.NewService(st, l, pub, log)
	svc.OnPlaced = func(ok bool) {
		if ok {
			placed.WithLabelValues("success").Inc()
			return
		}
		placed.WithLabelValues("rejected").Inc()
	}
	svc.OnSettled = func(o betting.Outcome) { settled.WithLabelValues(string(o)).Inc() }

	api := bhttp.NewServer(log, svc)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, st.Ping)

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
