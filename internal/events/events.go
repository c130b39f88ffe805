// Package events announces placed orders to external tooling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/m3rciful/nfcrelay/core/logger"
	"github.com/m3rciful/nfcrelay/internal/order"
)

// Publisher receives every successfully persisted order.
type Publisher interface {
	OrderPlaced(ctx context.Context, o order.Order) error
}

// Nop discards events.
type Nop struct{}

// OrderPlaced implements Publisher.
func (Nop) OrderPlaced(context.Context, order.Order) error { return nil }

// OrderMessage is the JSON body published for a placed order.
type OrderMessage struct {
	Event    string      `json:"event"`
	Order    order.Order `json:"order"`
	PlacedAt time.Time   `json:"placed_at"`
}

const eventOrderPlaced = "order.placed"

// Encode builds the message body for o.
func Encode(o order.Order, at time.Time) ([]byte, error) {
	return json.Marshal(OrderMessage{Event: eventOrderPlaced, Order: o, PlacedAt: at.UTC()})
}

// AMQP publishes order events to a durable queue on the default exchange.
type AMQP struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// DialAMQP connects to url and declares queue.
func DialAMQP(url, queue string) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp declare %s: %w", queue, err)
	}

	logger.Events.Info("publisher ready",
		slog.String("event", "events.connect"),
		slog.String("queue", queue),
	)
	return &AMQP{conn: conn, ch: ch, queue: queue}, nil
}

// OrderPlaced publishes o as a persistent JSON message.
func (p *AMQP) OrderPlaced(ctx context.Context, o order.Order) error {
	now := time.Now()
	body, err := Encode(o, now)
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(cctx,
		"",      // default exchange
		p.queue, // routing key = queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    o.ID,
			Type:         eventOrderPlaced,
			Body:         body,
			Timestamp:    now,
		},
	)
	if err != nil {
		return fmt.Errorf("publish order %s: %w", o.ID, err)
	}
	return nil
}

// Close closes the channel and connection.
func (p *AMQP) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
