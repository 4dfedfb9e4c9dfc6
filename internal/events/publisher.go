package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AyushGupta011/Velyra/internal/order"
)

const defaultProducer = "velyra-orders"

// Publisher emits order domain events.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, o *order.Order) error
	PublishOrderStatusChanged(ctx context.Context, c StatusChange) error
}

// Sequencer reserves the next sequence number for a partition.
type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type AMQPPublisher struct {
	mu       sync.Mutex
	ch       Channel
	seq      Sequencer
	producer string
	now      func() time.Time
}

// NewPublisher opens a channel on conn and declares the topic exchange.
func NewPublisher(conn *amqp.Connection, seq Sequencer, producer string) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return NewChannelPublisher(ch, seq, producer), nil
}

func NewChannelPublisher(ch Channel, seq Sequencer, producer string) *AMQPPublisher {
	if producer == "" {
		producer = defaultProducer
	}
	return &AMQPPublisher{ch: ch, seq: seq, producer: producer, now: time.Now}
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

func (p *AMQPPublisher) Close() error {
	return p.ch.Close()
}

// Sequence reservation and the broker write share p.mu so an order's events
// reach the exchange in sequence order.
func (p *AMQPPublisher) PublishOrderCreated(ctx context.Context, o *order.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	env, err := newEnvelope(ctx, p, o.ID, EventTypeOrderCreated, orderCreatedSchema, orderCreatedPayload(o))
	if err != nil {
		return err
	}
	return p.publish(ctx, OrderCreatedRoutingKey, env)
}

func (p *AMQPPublisher) PublishOrderStatusChanged(ctx context.Context, c StatusChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	env, err := newEnvelope(ctx, p, c.Order.ID, EventTypeOrderStatusChanged, orderStatusChangedSchema, orderStatusChangedPayload(c))
	if err != nil {
		return err
	}
	return p.publish(ctx, OrderStatusChangedRoutingKey, env)
}

// publish must be called with p.mu held.
func (p *AMQPPublisher) publish(ctx context.Context, routingKey string, env any) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", routingKey, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now().UTC(),
			Body:         body,
		},
	)
}

// Noop discards events. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishOrderCreated(context.Context, *order.Order) error { return nil }
func (Noop) PublishOrderStatusChanged(context.Context, StatusChange) error { return nil }
