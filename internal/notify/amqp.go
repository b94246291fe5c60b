package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dshills/roomservice/pkg/types"
)

// AMQP defaults
const (
	DefaultExchange   = "kitchen_topic"
	DefaultRoutingKey = "kitchen.order.new"
	publishTimeout    = 10 * time.Second
)

// AMQPBridge publishes kitchen messages to a RabbitMQ topic exchange and
// waits for the broker's publisher confirm
type AMQPBridge struct {
	url        string
	exchange   string
	routingKey string
	currency   string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPBridge creates the bridge and opens its connection
func NewAMQPBridge(cfg Config) (*AMQPBridge, error) {
	if cfg.AMQPURL == "" {
		return nil, fmt.Errorf("%w: %s is required", ErrNotConfigured, EnvAMQPURL)
	}
	b := &AMQPBridge{
		url:        cfg.AMQPURL,
		exchange:   cfg.AMQPExchange,
		routingKey: cfg.AMQPRoutingKey,
		currency:   cfg.Currency,
	}
	if b.exchange == "" {
		b.exchange = DefaultExchange
	}
	if b.routingKey == "" {
		b.routingKey = DefaultRoutingKey
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.connect(); err != nil {
		return nil, err
	}
	return b, nil
}

// connect dials the broker, enables confirms and declares the exchange.
// Callers hold b.mu.
func (b *AMQPBridge) connect() error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	err = ch.ExchangeDeclare(
		b.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to declare %s exchange: %w", b.exchange, err)
	}

	b.conn = conn
	b.ch = ch
	return nil
}

func (b *AMQPBridge) Channel() string { return ChannelAMQP }

func (b *AMQPBridge) Send(ctx context.Context, o *types.Order) error {
	body, err := json.Marshal(NewKitchenMessage(o, b.currency))
	if err != nil {
		return Permanent(fmt.Errorf("failed to marshal message: %w", err))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil || b.conn.IsClosed() || b.ch == nil || b.ch.IsClosed() {
		if b.conn != nil {
			_ = b.conn.Close()
		}
		if err := b.connect(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	confirm, err := b.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		b.exchange,   // exchange
		b.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    o.ID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for publisher confirm: %w", err)
	}
	if !acked {
		return errors.New("broker rejected kitchen message")
	}
	return nil
}

func (b *AMQPBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn, b.ch = nil, nil
	return err
}
