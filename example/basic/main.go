package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ziademad02153/local-automation-Microwave-app"
)

func main() {
	rig, err := mwtest.New("../../config.example.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rig.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("rig exited: %v", err)
	}
}
