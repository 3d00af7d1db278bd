package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/shared/config"
	"github.com/radieske/sports-bankroll-platform/internal/shared/db"
	"github.com/radieske/sports-bankroll-platform/internal/shared/logger"
)

// Aplica o esquema embutido no Postgres de POSTGRES_DSN
func main() {
	cfg := config.Load()
	log, err := logger.New("migrate", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := db.Migrate(ctx, pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	log.Info("schema applied")
}
