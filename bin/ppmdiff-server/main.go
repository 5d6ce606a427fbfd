package main

import (
	"context"
	"log"
	"ppm-diff/internal/envconfig"
	"ppm-diff/internal/runnable"
)

func main() {
	if err := envconfig.Load(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}

	ctx := context.Background()

	server := runnable.NewServer()
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
