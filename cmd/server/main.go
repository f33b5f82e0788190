package main

import (
	"context"
	"log"

	"github.com/rpattn/pivotql/internal/server"
)

func main() {
	if err := server.Run(context.Background(), "."); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
