package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	sharedcache "github.com/radieske/sports-bankroll-platform/internal/shared/cache"
)

const DefaultTTL = 30 * time.Second

// Chaves do cache de leitura. O odds-processor invalida GameKey/LinesKey
// quando chega uma linha nova.
func GameKey(gameID string) string  { return "games:" + gameID }
func LinesKey(gameID string) string { return "games:" + gameID + ":lines" }
func ListKey(sport string, limit int) string {
	if sport == "" {
		sport = "all"
	}
	return "games:list:" + sport + ":" + strconv.Itoa(limit)
}

type Cache struct {
	r   redis.Cmdable
	ttl time.Duration
}

func New(r redis.Cmdable, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{r: r, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	return sharedcache.GetJSON(ctx, c.r, key, dst)
}

func (c *Cache) Set(ctx context.Context, key string, v any) error {
	return sharedcache.SetJSON(ctx, c.r, key, v, c.ttl)
}

func (c *Cache) InvalidateGame(ctx context.Context, gameID string) error {
	return InvalidateGame(ctx, c.r, gameID)
}

func InvalidateGame(ctx context.Context, r redis.Cmdable, gameID string) error {
	return r.Del(ctx, GameKey(gameID), LinesKey(gameID)).Err()
}
