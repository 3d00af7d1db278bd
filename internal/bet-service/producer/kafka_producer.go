package producer

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	skafka "github.com/radieske/sports-bankroll-platform/internal/shared/kafka"
	"github.com/radieske/sports-bankroll-platform/pkg/contracts/events"
)

// messageWriter é o subconjunto de *kafka.Writer usado aqui
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica os eventos de aposta, um writer por tópico.
// A chave é o userId: eventos do mesmo usuário caem na mesma partição.
type KafkaPublisher struct {
	placed   messageWriter
	settled  messageWriter
	canceled messageWriter
	now      func() time.Time
}

func NewKafkaPublisher(placed, settled, canceled *kafka.Writer) *KafkaPublisher {
	return newPublisher(placed, settled, canceled)
}

// NewForTopics cria um writer por tópico a partir da lista de brokers
func NewForTopics(brokers, placed, settled, canceled string) *KafkaPublisher {
	return NewKafkaPublisher(
		skafka.NewWriter(brokers, placed),
		skafka.NewWriter(brokers, settled),
		skafka.NewWriter(brokers, canceled),
	)
}

func newPublisher(placed, settled, canceled messageWriter) *KafkaPublisher {
	return &KafkaPublisher{placed: placed, settled: settled, canceled: canceled, now: time.Now}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = p.now().UnixMilli()
	return write(ctx, p.placed, e.UserID, e)
}

func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	if e.Ts.IsZero() {
		e.Ts = p.now().UTC()
	}
	return write(ctx, p.settled, e.UserID, e)
}

func (p *KafkaPublisher) PublishBetCanceled(ctx context.Context, e events.BetCanceled) error {
	if e.Ts.IsZero() {
		e.Ts = p.now().UTC()
	}
	return write(ctx, p.canceled, e.UserID, e)
}

func write(ctx context.Context, w messageWriter, key string, v any) error {
	msg, err := skafka.JSONMessage(key, v)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, msg)
}

// Close fecha os writers que suportam Close
func (p *KafkaPublisher) Close() error {
	var errs []error
	for _, w := range []messageWriter{p.placed, p.settled, p.canceled} {
		if c, ok := w.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
