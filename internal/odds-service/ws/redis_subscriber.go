package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "odds_updates_broadcast"

// StartRedisSubscriber escuta o canal Pub/Sub e repassa cada mensagem ao hub
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	if channel == "" {
		channel = DefaultChannel
	}
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if upd, ok := decodeUpdate(msg.Payload, log); ok {
					hub.Broadcast(upd)
				}
			}
		}
	}()
}

func decodeUpdate(payload string, log *zap.Logger) (OddsUpdate, bool) {
	var upd OddsUpdate
	if err := json.Unmarshal([]byte(payload), &upd); err != nil || upd.GameID == "" {
		log.Warn("ws subscriber: invalid payload", zap.Error(err))
		return upd, false
	}
	return upd, true
}
