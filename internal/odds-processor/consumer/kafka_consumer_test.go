package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	skafka "github.com/radieske/sports-bankroll-platform/internal/shared/kafka"
	"github.com/radieske/sports-bankroll-platform/pkg/contracts/events"
)

// chanReader entrega as mensagens do canal e bloqueia até ctx quando vazio
type chanReader struct{ ch chan kafka.Message }

func (r *chanReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.ch:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

type fakeCache struct {
	got []events.OddsUpdate
	err error
}

func (c *fakeCache) SetCurrent(_ context.Context, u events.OddsUpdate) error {
	c.got = append(c.got, u)
	return c.err
}

type fakeBroadcaster struct{ got []events.OddsUpdate }

func (b *fakeBroadcaster) Broadcast(_ context.Context, u events.OddsUpdate) error {
	b.got = append(b.got, u)
	return nil
}

func msg(t *testing.T, u events.OddsUpdate) kafka.Message {
	t.Helper()
	m, err := skafka.JSONMessage(u.GameID, u)
	require.NoError(t, err)
	return m
}

func TestHandle_CachesAndBroadcasts(t *testing.T) {
	c, b := &fakeCache{}, &fakeBroadcaster{}
	var stages []string
	p := &Processor{Log: zap.NewNop(), Cache: c, Broadcaster: b, OnError: func(s string) { stages = append(stages, s) }}

	p.Handle(context.Background(), msg(t, events.OddsUpdate{GameID: "g1", LineType: "spread"}))
	p.Handle(context.Background(), kafka.Message{Value: []byte("{bad")})
	p.Handle(context.Background(), msg(t, events.OddsUpdate{LineType: "spread"}))

	require.Len(t, c.got, 1)
	assert.Equal(t, "g1", c.got[0].GameID)
	assert.Len(t, b.got, 1)
	assert.Equal(t, []string{"decode", "decode"}, stages)
}

func TestHandle_CacheFailureStillBroadcasts(t *testing.T) {
	c, b := &fakeCache{err: errors.New("redis down")}, &fakeBroadcaster{}
	var stages []string
	p := &Processor{Log: zap.NewNop(), Cache: c, Broadcaster: b, OnError: func(s string) { stages = append(stages, s) }}

	p.Handle(context.Background(), msg(t, events.OddsUpdate{GameID: "g1", LineType: "moneyline"}))
	assert.Equal(t, []string{"cache"}, stages)
	assert.Len(t, b.got, 1)
}

func TestRun_StopsOnCancel(t *testing.T) {
	r := &chanReader{ch: make(chan kafka.Message, 1)}
	c := &fakeCache{}
	consumed := 0
	p := &Processor{Log: zap.NewNop(), Reader: r, Cache: c, OnConsumed: func() { consumed++ }}

	r.ch <- msg(t, events.OddsUpdate{GameID: "g1", LineType: "over_under"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(r.ch) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("processor did not stop")
	}
	assert.Equal(t, 1, consumed)
	assert.Len(t, c.got, 1)
}
