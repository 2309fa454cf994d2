// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package inference turns sample windows into per-label scores.
package inference

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSignalConversion is returned when a window cannot be turned into an
	// engine signal, typically because its length is wrong.
	ErrSignalConversion = errors.New("failed to create signal from buffer")
	// ErrInference is returned when the engine fails to classify a signal.
	ErrInference = errors.New("failed to run classifier")
)

// Signal is a window accepted by an engine.
type Signal struct {
	data []float64
}

// Len returns the number of floats in the signal.
func (s Signal) Len() int { return len(s.data) }

// Prediction is one label score.
type Prediction struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Timing breaks down the time spent per phase. Informational only.
type Timing struct {
	DSP            time.Duration `json:"dsp"`
	Classification time.Duration `json:"classification"`
	Anomaly        time.Duration `json:"anomaly"`
}

// Result is the output of one classification. Classification keeps the
// engine's label order.
type Result struct {
	Classification []Prediction `json:"classification"`
	Anomaly        float64      `json:"anomaly"`
	HasAnomaly     bool         `json:"has_anomaly"`
	Timing         Timing       `json:"timing"`
}

// Engine is the inference collaborator.
type Engine interface {
	// InputFrameSize is the exact number of floats a signal must hold.
	InputFrameSize() int
	SignalFromBuffer(buf []float64) (Signal, error)
	RunClassifier(ctx context.Context, signal Signal) (Result, error)
}
