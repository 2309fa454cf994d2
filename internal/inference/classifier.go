// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package inference

import (
	"context"
	"errors"
	"fmt"
)

// Classifier wraps an Engine and normalizes its failures to
// ErrSignalConversion and ErrInference.
type Classifier struct {
	engine Engine
}

// NewClassifier returns a Classifier for engine.
func NewClassifier(engine Engine) *Classifier {
	return &Classifier{engine: engine}
}

// FrameSize is the window length the engine expects.
func (c *Classifier) FrameSize() int {
	return c.engine.InputFrameSize()
}

// Classify converts window into a signal and runs inference on it. No retry
// is attempted.
func (c *Classifier) Classify(ctx context.Context, window []float64) (Result, error) {
	if want := c.engine.InputFrameSize(); len(window) != want {
		return Result{}, fmt.Errorf("%w: window has %d values, engine expects %d", ErrSignalConversion, len(window), want)
	}

	signal, err := c.engine.SignalFromBuffer(window)
	if err != nil {
		if errors.Is(err, ErrSignalConversion) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %v", ErrSignalConversion, err)
	}

	result, err := c.engine.RunClassifier(ctx, signal)
	if err != nil {
		if errors.Is(err, ErrInference) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %v", ErrInference, err)
	}
	return result, nil
}
