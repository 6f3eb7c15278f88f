package main

import (
	"context"
	"log"

	"rag-workspace-be/internal/bootstrap"
	"rag-workspace-be/internal/config"
	"rag-workspace-be/internal/server"
	"rag-workspace-be/internal/tracer"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	container := bootstrap.NewContainer(cfg)
	defer container.Shutdown()

	// The ingestion worker drains the queue for the lifetime of the process.
	if err := container.IngestWorker.Consume(context.Background()); err != nil {
		log.Fatalf("Failed to start ingest worker: %v", err)
	}

	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
