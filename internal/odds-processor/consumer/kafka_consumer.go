package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/pkg/contracts/events"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type LineCache interface {
	SetCurrent(ctx context.Context, u events.OddsUpdate) error
}

type Broadcaster interface {
	Broadcast(ctx context.Context, u events.OddsUpdate) error
}

// Processor consome odds_updates, atualiza o cache de linhas e avisa o WebSocket.
// Callbacks de métricas são opcionais.
type Processor struct {
	Log         *zap.Logger
	Reader      MessageReader
	Cache       LineCache
	Broadcaster Broadcaster // opcional

	OnConsumed func()
	OnCached   func()
	OnError    func(stage string)
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

// Run roda até ctx ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma mensagem; erros só viram log e métrica
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	var ev events.OddsUpdate
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.GameID == "" || ev.LineType == "" {
		p.Log.Warn("invalid odds update", zap.ByteString("key", m.Key), zap.Error(err))
		p.fail("decode")
		return
	}

	if err := p.Cache.SetCurrent(ctx, ev); err != nil {
		p.Log.Warn("redis set failed", zap.String("gameId", ev.GameID), zap.Error(err))
		p.fail("cache")
	} else if p.OnCached != nil {
		p.OnCached()
	}

	if p.Broadcaster == nil {
		return
	}
	bctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := p.Broadcaster.Broadcast(bctx, ev); err != nil {
		p.Log.Warn("ws broadcast publish failed", zap.String("gameId", ev.GameID), zap.Error(err))
		p.fail("broadcast")
	}
}
