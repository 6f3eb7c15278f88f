package nats

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Subscriber consumes events from the NATS bus through a durable consumer.
// The core never depends on it; it exists for external listeners such as a
// websocket gateway or an audit sink.
type Subscriber struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewSubscriber(url string) (*Subscriber, error) {
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

	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe binds a durable consumer to the given subject filter (e.g.
// "events.CHAT_CHUNK" or "events.>") and invokes handler for every message.
// The message is acked when the handler returns nil and nak'd otherwise.
func (s *Subscriber) Subscribe(ctx context.Context, durable, filterSubject string, handler func(subject string, data []byte) error) (jetstream.ConsumeContext, error) {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, "EVENTS", jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer %s: %w", durable, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(msg.Subject(), msg.Data()); err != nil {
			log.Printf("Warn: handler failed for %s: %v", msg.Subject(), err)
			if nakErr := msg.Nak(); nakErr != nil {
				log.Printf("Warn: failed to nak message: %v", nakErr)
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Warn: failed to ack message: %v", ackErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consumer %s: %w", durable, err)
	}

	return cc, nil
}

// Close closes the NATS connection.
func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
