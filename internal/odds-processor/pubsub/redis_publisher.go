package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/sports-bankroll-platform/pkg/contracts/events"
)

const ChannelOddsBroadcast = "odds_updates_broadcast"

type RedisBroadcaster struct {
	r       redis.Cmdable
	channel string
}

func NewRedisBroadcaster(r redis.Cmdable, channel string) *RedisBroadcaster {
	if channel == "" {
		channel = ChannelOddsBroadcast
	}
	return &RedisBroadcaster{r: r, channel: channel}
}

// WSUpdate é o payload consumido pelo hub WebSocket do odds-service
type WSUpdate struct {
	GameID  string            `json:"gameId"`
	Payload events.OddsUpdate `json:"payload"`
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, u events.OddsUpdate) error {
	payload, err := json.Marshal(WSUpdate{GameID: u.GameID, Payload: u})
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}
