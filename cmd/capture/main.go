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
	outputPort := flag.String("out", "", "serial port to stream samples to (default stdout)")
	samples := flag.Int("n", 0, "number of samples to capture (0 = until interrupted)")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	// Samples go to stdout, so logs go to stderr.
	logger := app.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunCapture(ctx, cfg, app.CaptureOptions{
		OutputPort: *outputPort,
		Out:        os.Stdout,
		Samples:    *samples,
		Logger:     logger,
	}); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}
