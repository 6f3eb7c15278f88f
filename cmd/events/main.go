// Tails the event stream. Useful when debugging ingestion runs or chat
// streaming without a frontend attached:
//
//	go run ./cmd/events                      # everything
//	go run ./cmd/events events.CHAT_CHUNK    # one event type
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	pkgNats "rag-workspace-be/pkg/nats"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	filter := "events.>"
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	sub, err := pkgNats.NewSubscriber(natsURL)
	if err != nil {
		log.Fatalf("Error: Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	cc, err := sub.Subscribe(context.Background(), "event-tail", filter, func(subject string, data []byte) error {
		log.Printf("%s %s", subject, data)
		return nil
	})
	if err != nil {
		log.Fatalf("Error: Failed to subscribe: %v", err)
	}
	defer cc.Stop()

	log.Printf("Tailing %s on %s, Ctrl+C to stop", filter, natsURL)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}
