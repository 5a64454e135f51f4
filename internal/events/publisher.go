// Package events publishes campaign lifecycle events to RabbitMQ for
// downstream consumers (analytics, notification pipelines).
//
// Publishing is best-effort: a nil *Publisher is valid and drops everything,
// and callers treat publish errors as non-fatal.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeName = "outreach.events"

type EventType string

const (
	EventTypeCallPlaced        EventType = "call.placed"
	EventTypeCallCompleted     EventType = "call.completed"
	EventTypeCampaignCompleted EventType = "campaign.completed"
)

// Event is the wire envelope for every published message.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

type CallPlacedPayload struct {
	CampaignID string `json:"campaign_id"`
	LeadID     string `json:"lead_id"`
	CallSID    string `json:"call_sid"`
	Attempt    int    `json:"attempt"`
}

type CallCompletedPayload struct {
	CampaignID string `json:"campaign_id"`
	LeadID     string `json:"lead_id"`
	CallStatus string `json:"call_status"`
	LeadStatus string `json:"lead_status"`
	Attempt    int    `json:"attempt"`
}

type CampaignCompletedPayload struct {
	CampaignID string `json:"campaign_id"`
	Reason     string `json:"reason"`
}

// Publisher publishes events on a durable topic exchange.
type Publisher struct {
	conn   *amqp.Connection
	logger *slog.Logger
}

// Connect dials RabbitMQ and declares the topology.
func Connect(url string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchangeName, err)
	}
	return &Publisher{conn: conn, logger: logger}, nil
}

func (p *Publisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

func (p *Publisher) publish(ctx context.Context, typ EventType, payload any) error {
	if p == nil || p.conn == nil {
		return nil
	}
	msg := Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx,
		exchangeName,
		string(typ), // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", typ, err)
	}

	p.logger.Debug("published event", "type", typ, "event_id", msg.ID)
	return nil
}

func (p *Publisher) CallPlaced(ctx context.Context, pl CallPlacedPayload) error {
	return p.publish(ctx, EventTypeCallPlaced, pl)
}

func (p *Publisher) CallCompleted(ctx context.Context, pl CallCompletedPayload) error {
	return p.publish(ctx, EventTypeCallCompleted, pl)
}

func (p *Publisher) CampaignCompleted(ctx context.Context, pl CampaignCompletedPayload) error {
	return p.publish(ctx, EventTypeCampaignCompleted, pl)
}
