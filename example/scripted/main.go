package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ziademad02153/local-automation-Microwave-app"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/fsm"
)

// Runs a single grill acceptance test against the simulated fixture and
// prints the report, without touching the HTTP API.
func main() {
	cfg, err := mwtest.LoadConfig("../../config.example.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.Driver.Kind = "sim"
	cfg.MQTT.Broker = ""
	cfg.Report.Postgres.ConnString = ""

	rig, err := mwtest.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("build rig: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- rig.Run(ctx) }()

	engine := rig.Engine()
	if err := engine.Start("grill", 0); err != nil {
		log.Fatalf("start session: %v", err)
	}

	for engine.State() != fsm.StateCompleted {
		time.Sleep(500 * time.Millisecond)
	}

	report := engine.LastReport()
	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))

	cancel()
	if err := <-done; err != nil && err != context.Canceled {
		log.Fatalf("rig exited: %v", err)
	}
}
