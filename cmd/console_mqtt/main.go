// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/fittrack/internal/app"
	"github.com/relabs-tech/fittrack/internal/config"
)

func main() {
	configPath := flag.String("config", "./fittrack_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting fittrack console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	logger := app.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunConsoleMQTT(ctx, cfg, os.Stdout, logger); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
