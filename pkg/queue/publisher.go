// Package queue publishes literature lifecycle events to a message
// broker so downstream consumers (search indexers, notifiers) can react
// without polling the database.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"litassist/pkg/domain"
)

// LifecycleEvent describes a terminal state change of one record.
type LifecycleEvent struct {
	LiteratureID string                  `json:"literatureId"`
	UserID       string                  `json:"userId"`
	Status       domain.LiteratureStatus `json:"status"`
	OccurredAt   time.Time               `json:"occurredAt"`
}

// Publisher emits lifecycle events. Implementations must be best-effort
// from the caller's point of view; a publish failure never fails the
// pipeline that produced the event.
type Publisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
	Close() error
}

// AMQPPublisher publishes to a RabbitMQ topic exchange with routing key
// "literature.<status>".
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, channel: channel, exchange: exchange}, nil
}

// Publish sends one event.
func (p *AMQPPublisher) Publish(ctx context.Context, event LifecycleEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	routingKey := "literature." + string(event.Status)
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   event.OccurredAt,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close shuts down the channel and connection.
func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
