// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/fittrack/internal/acquire"
	"github.com/relabs-tech/fittrack/internal/config"
	"github.com/relabs-tech/fittrack/internal/imu"
	"github.com/relabs-tech/fittrack/internal/sensors"
	"github.com/relabs-tech/fittrack/internal/timeutil"
)

// CaptureOptions controls a capture run.
type CaptureOptions struct {
	// OutputPort is a serial device to write to; empty writes to Out.
	OutputPort string
	Out        io.Writer
	// Samples stops the capture after that many lines; zero runs until ctx
	// is done.
	Samples int
	Clock   timeutil.Clock
	Logger  *slog.Logger
}

// RunCapture streams tab-separated m/s² triples at the sampling rate, for
// collecting training data.
func RunCapture(ctx context.Context, cfg *config.Config, opts CaptureOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	sensor, err := buildSensor(cfg, logger)
	if err != nil {
		return err
	}
	if c, ok := sensor.(io.Closer); ok {
		defer c.Close()
	}

	out := opts.Out
	if opts.OutputPort != "" {
		port, err := serial.Open(serial.OpenOptions{
			PortName:        opts.OutputPort,
			BaudRate:        uint(cfg.SerialBaudRate),
			DataBits:        8,
			StopBits:        1,
			MinimumReadSize: 1,
		})
		if err != nil {
			return fmt.Errorf("failed to open output port %s: %w", opts.OutputPort, err)
		}
		defer port.Close()
		out = port
	}
	if out == nil {
		return errors.New("capture: no output")
	}

	logger.Info("capture: streaming samples", "rate_hz", cfg.SampleFrequencyHz, "sensor", cfg.SensorSource)
	return Capture(ctx, sensor, clock, cfg, out, opts.Samples)
}

// FormatSample renders a sample as a capture line without the newline.
func FormatSample(s imu.Sample) string {
	return fmt.Sprintf("%.4f\t%.4f\t%.4f", s.X, s.Y, s.Z)
}

// Capture writes one "x\ty\tz" line per sample tick with four decimals.
func Capture(ctx context.Context, sensor sensors.AxisReader, clock timeutil.Clock, cfg *config.Config, out io.Writer, samples int) error {
	acq, err := acquire.New(sensor, clock, cfg.SampleInterval(), 3, cfg.SensorReadTimeout())
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	defer w.Flush()

	for n := 0; samples == 0 || n < samples; n++ {
		win, err := acq.AcquireWindow(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if _, err := fmt.Fprintln(w, FormatSample(imu.Sample{X: win[0], Y: win[1], Z: win[2]})); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}
