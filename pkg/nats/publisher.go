package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"rag-workspace-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventPublisher is the one-way notification channel the pipelines and the
// chat engine write to. The core never reads events back.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Publisher sends events to the NATS bus.
type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

var _ EventPublisher = &Publisher{}

// NewPublisher connects to NATS and ensures the EVENTS stream exists.
func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "EVENTS",
		Subjects:  []string{"events.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
	})
	if err != nil {
		log.Printf("Warn: Failed to ensure stream 'EVENTS': %v", err)
	}

	return &Publisher{nc: nc, js: js}, nil
}

// Publish sends an event; the subject carries the event type.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	subject := fmt.Sprintf("events.%s", event.EventType())

	_, err = p.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}

	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// NopPublisher discards events, used when no NATS URL is configured and in
// tests.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event events.Event) error { return nil }
