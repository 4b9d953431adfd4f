package main

import (
	"context"
	"flag"
	"log"
	"os"

	"PriceCast/internal/di"
	"PriceCast/internal/usecase"
	"PriceCast/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	input := flag.String("input", "", "observations JSON path (overrides input.path)")
	output := flag.String("output", "", "forecast document path (overrides output.path)")
	target := flag.String("target", "", "target period YYYY-MM (overrides forecast.target_period)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *input != "" {
		cfg.Input.Path = *input
	}
	if *output != "" {
		cfg.Output.Path = *output
	}
	if *target != "" {
		cfg.Forecast.TargetPeriod = *target
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// blocks until done in batch mode, or until a signal in server mode
	if err := app.Run(context.Background(), usecase.RunParams{}); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
