package payment

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Backends das contas de papel
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// NewAccounts escolhe onde ficam as contas de papel; redis exige rdb
func NewAccounts(backend string, rdb *redis.Client) (PaperAccounts, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryAccounts(), nil
	case BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("paper accounts: redis client is required")
		}
		return NewRedisAccounts(rdb), nil
	}
	return nil, fmt.Errorf("paper accounts: unknown backend %q", backend)
}
