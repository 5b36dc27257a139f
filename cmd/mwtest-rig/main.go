package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mwtest "github.com/ziademad02153/local-automation-Microwave-app"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "replay":
		err = replayCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("mwtest-rig %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to rig configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rig, err := mwtest.New(*cfgPath)
	if err != nil {
		return fmt.Errorf("assemble rig: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rig.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := mwtest.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func replayCommand(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to rig configuration file")
	logPath := fs.String("log", "", "Path to the recorded session sample log")
	mode := fs.String("mode", "", "Mode whose acceptance criteria to apply")
	weight := fs.Int("weight", 0, "Sample weight in grams (defrost modes only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *logPath == "" || *mode == "" {
		return fmt.Errorf("both -log and -mode are required")
	}

	cfg, err := mwtest.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}

	report, err := mwtest.Replay(cfg, *logPath, *mode, *weight)
	if err != nil {
		return err
	}

	// Full sample arrays make the output unwieldy on the terminal.
	report.Samples = nil

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func printUsage() {
	fmt.Println(`mwtest-rig: microwave oven acceptance test stand

Usage:
  mwtest-rig run      [-config path]                         Run the rig
  mwtest-rig validate [-config path]                         Validate a config file
  mwtest-rig replay   [-config path] -log path -mode name [-weight g]
                                                             Re-analyse a recorded session
  mwtest-rig help                                            Show this help`)
}
