// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package bus

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/thewaterinstitute/metget-server/internal/logging"
)

// Compile-time check to verify implements interface.
var _ Bus = (*AMQPBus)(nil)

// AMQPBus implements Bus against a RabbitMQ broker: a durable fanout
// exchange bound to a single durable work queue, consumed with manual
// acknowledgement.
type AMQPBus struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
}

// NewAMQPBus connects to cfg.URI and declares the exchange/queue/binding
// idempotently.
func NewAMQPBus(ctx context.Context, cfg Config) (Bus, error) {
	conn, err := amqp.Dial(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("bus: dial %q: %w", cfg.URI, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("bus: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bus: declare exchange %q: %w", cfg.Exchange, err)
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bus: declare queue %q: %w", cfg.Queue, err)
	}

	if err := ch.QueueBind(cfg.Queue, "", cfg.Exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bus: bind queue %q to exchange %q: %w", cfg.Queue, cfg.Exchange, err)
	}

	return &AMQPBus{conn: conn, channel: ch, exchange: cfg.Exchange, queue: cfg.Queue}, nil
}

func (b *AMQPBus) Publish(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("bus: encoding envelope %s: %w", env.RequestID, err)
	}

	return b.channel.PublishWithContext(ctx, b.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (b *AMQPBus) Consume(ctx context.Context) (<-chan Delivery, error) {
	msgs, err := b.channel.ConsumeWithContext(ctx, b.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("bus: consume queue %q: %w", b.queue, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		logger := logging.FromContext(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal(msg.Body, &env); err != nil {
					logger.Errorf("bus: dropping undecodable message: %v", err)
					_ = msg.Nack(false, false)
					continue
				}
				out <- Delivery{
					Envelope: env,
					Ack:      func() error { return msg.Ack(false) },
					Nack:     func(requeue bool) error { return msg.Nack(false, requeue) },
				}
			}
		}
	}()
	return out, nil
}

func (b *AMQPBus) Close() error {
	if err := b.channel.Close(); err != nil {
		return err
	}
	return b.conn.Close()
}
