// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package acquire fills fixed-size sample windows from a tri-axis sensor at
// a fixed cadence.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/relabs-tech/fittrack/internal/imu"
	"github.com/relabs-tech/fittrack/internal/sensors"
	"github.com/relabs-tech/fittrack/internal/timeutil"
)

// ErrAcquireTimeout is returned when a sensor read exceeds the read timeout.
var ErrAcquireTimeout = errors.New("sensor read timed out")

type readResult struct {
	value float64
	err   error
}

// Acquirer samples a sensor into windows of frameSize floats. Each tick
// computes its wake deadline before reading, so the time spent reading and
// the rest of the cycle never shifts the cadence.
type Acquirer struct {
	sensor      sensors.AxisReader
	clock       timeutil.Clock
	interval    time.Duration
	frameSize   int
	readTimeout time.Duration

	lastTick time.Time
	pending  chan readResult
}

// New returns an Acquirer. frameSize must be a positive multiple of 3.
// A zero readTimeout reads synchronously without a bound.
func New(sensor sensors.AxisReader, clock timeutil.Clock, interval time.Duration, frameSize int, readTimeout time.Duration) (*Acquirer, error) {
	if frameSize <= 0 || frameSize%3 != 0 {
		return nil, fmt.Errorf("frame size %d is not a positive multiple of 3", frameSize)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("sample interval must be positive, got %s", interval)
	}
	return &Acquirer{
		sensor:      sensor,
		clock:       clock,
		interval:    interval,
		frameSize:   frameSize,
		readTimeout: readTimeout,
	}, nil
}

// FrameSize is the number of floats produced per window.
func (a *Acquirer) FrameSize() int { return a.frameSize }

// LastTick is the deadline of the most recent sample tick.
func (a *Acquirer) LastTick() time.Time { return a.lastTick }

// AcquireWindow reads frameSize/3 samples, converting each from g to m/s².
func (a *Acquirer) AcquireWindow(ctx context.Context) ([]float64, error) {
	window := make([]float64, a.frameSize)

	for ix := 0; ix < a.frameSize; ix += 3 {
		deadline := a.clock.Now().Add(a.interval)
		a.lastTick = deadline

		var g [3]float64
		for i, axis := range imu.Axes {
			v, err := a.read(ctx, axis)
			if err != nil {
				return nil, fmt.Errorf("sample %d axis %s: %w", ix/3, axis, err)
			}
			g[i] = v
		}
		s := imu.FromG(g[0], g[1], g[2])
		window[ix], window[ix+1], window[ix+2] = s.X, s.Y, s.Z

		if err := a.clock.SleepUntil(ctx, deadline); err != nil {
			return nil, err
		}
	}

	return window, nil
}

// read performs one bounded sensor read. A read that timed out is still
// owned by its goroutine; the next read waits for it before touching the
// sensor again.
func (a *Acquirer) read(ctx context.Context, axis imu.Axis) (float64, error) {
	if a.readTimeout <= 0 {
		return a.sensor.ReadAxis(axis)
	}

	timer := time.NewTimer(a.readTimeout)
	defer timer.Stop()

	if a.pending != nil {
		select {
		case <-a.pending:
			a.pending = nil
		case <-timer.C:
			return 0, ErrAcquireTimeout
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	ch := make(chan readResult, 1)
	go func() {
		v, err := a.sensor.ReadAxis(axis)
		ch <- readResult{value: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-timer.C:
		a.pending = ch
		return 0, ErrAcquireTimeout
	case <-ctx.Done():
		a.pending = ch
		return 0, ctx.Err()
	}
}
