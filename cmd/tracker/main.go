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
	classifyOnly := flag.Bool("classify-only", false, "log predictions without smoothing or publishing")
	flag.Parse()

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	logger := app.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting fittrack activity tracker (sensor → classifier → transports)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunTracker(ctx, cfg, app.TrackerOptions{
		ClassifyOnly: *classifyOnly,
		Logger:       logger,
	}); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}
