package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	gamescache "github.com/radieske/sports-bankroll-platform/internal/odds-service/cache"
	"github.com/radieske/sports-bankroll-platform/pkg/contracts/events"
)

const DefaultTTL = 60 * time.Second

// RedisCache guarda a linha atual de cada (jogo, tipo) com TTL
type RedisCache struct {
	Client redis.Cmdable
	TTL    time.Duration
}

func NewRedisCache(c redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{Client: c, TTL: ttl}
}

func LineKey(gameID, lineType string) string { return "odds:line:" + gameID + ":" + lineType }

// SetCurrent grava a linha e derruba o cache de leitura do jogo no mesmo pipeline
func (r *RedisCache) SetCurrent(ctx context.Context, u events.OddsUpdate) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	_, err = r.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, LineKey(u.GameID, u.LineType), b, r.TTL)
		return gamescache.InvalidateGame(ctx, p, u.GameID)
	})
	return err
}
