// Package events publishes reservation lifecycle events to RabbitMQ so
// downstream consumers (housekeeping, channel managers, revenue) can
// react without coupling to the booking flow.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/app"
)

const (
	exchangeName = "pms.events"
	producerName = "reservation-core"
)

// Publisher fans reservation events out on a topic exchange, routed by
// event type (e.g. "reservation.cancelled").
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Publisher{conn: conn, channel: ch}, nil
}

type envelope struct {
	EventID    string               `json:"event_id"`
	Type       string               `json:"type"`
	OccurredAt time.Time            `json:"occurred_at"`
	Producer   string               `json:"producer"`
	Payload    app.ReservationEvent `json:"payload"`
}

func (p *Publisher) PublishReservationEvent(ctx context.Context, ev app.ReservationEvent) error {
	body, err := json.Marshal(envelope{
		EventID:    uuid.NewString(),
		Type:       ev.Type,
		OccurredAt: ev.OccurredAt,
		Producer:   producerName,
		Payload:    ev,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx, exchangeName, ev.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
