// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/relabs-tech/fittrack/internal/acquire"
	"github.com/relabs-tech/fittrack/internal/activity"
	"github.com/relabs-tech/fittrack/internal/config"
	"github.com/relabs-tech/fittrack/internal/inference"
	"github.com/relabs-tech/fittrack/internal/metrics"
	"github.com/relabs-tech/fittrack/internal/pipeline"
	"github.com/relabs-tech/fittrack/internal/sensors"
	"github.com/relabs-tech/fittrack/internal/timeutil"
	"github.com/relabs-tech/fittrack/internal/transport"
)

// TrackerOptions adjusts a tracker run beyond the config file.
type TrackerOptions struct {
	ClassifyOnly bool
	Clock        timeutil.Clock
	Logger       *slog.Logger
}

type tracker struct {
	pipeline *pipeline.Pipeline
	gate     pipeline.Gate
	hub      *transport.Hub
	metrics  *metrics.Metrics
	closers  []io.Closer
}

func (t *tracker) Close() {
	for i := len(t.closers) - 1; i >= 0; i-- {
		t.closers[i].Close()
	}
}

// RunTracker samples, classifies and publishes until ctx is done.
func RunTracker(ctx context.Context, cfg *config.Config, opts TrackerOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t, err := newTracker(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer t.Close()

	if cfg.WebServerPort > 0 {
		srv := &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.WebServerPort),
			Handler:           NewStatusHandler(t.pipeline, t.hub, t.metrics),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("web: status server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("web: status server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("tracker: starting control loop",
		"sensor", cfg.SensorSource,
		"transports", cfg.Transports,
		"classify_only", opts.ClassifyOnly)

	err = t.pipeline.Run(ctx, t.gate)
	if errors.Is(err, context.Canceled) {
		logger.Info("tracker: shutting down")
		return nil
	}
	return err
}

func newTracker(ctx context.Context, cfg *config.Config, opts TrackerOptions) (t *tracker, err error) {
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t = &tracker{metrics: metrics.New(), gate: pipeline.AlwaysOpen{}}
	defer func() {
		if err != nil {
			t.Close()
			t = nil
		}
	}()

	sensor, err := buildSensor(cfg, logger)
	if err != nil {
		return t, err
	}
	if c, ok := sensor.(io.Closer); ok {
		t.closers = append(t.closers, c)
	}

	acq, err := acquire.New(sensor, clock, cfg.SampleInterval(), cfg.FrameSize(), cfg.SensorReadTimeout())
	if err != nil {
		return t, err
	}

	model, err := inference.LoadModel(cfg.ModelPath)
	if err != nil {
		return t, err
	}
	if model.FrameSize != cfg.FrameSize() {
		return t, fmt.Errorf("model %s expects frame size %d, config gives %d (3 x SAMPLES_PER_WINDOW)",
			model.Name, model.FrameSize, cfg.FrameSize())
	}
	engine, err := inference.NewLinearEngine(model, clock)
	if err != nil {
		return t, err
	}
	logger.Info("tracker: model loaded", "name", model.Name, "labels", engine.Labels())

	pcfg := pipeline.Config{
		Source:        acq,
		Classifier:    inference.NewClassifier(engine),
		Policy:        activity.NewPolicy(cfg.ConfidenceThreshold),
		Clock:         clock,
		Logger:        logger,
		Metrics:       t.metrics,
		CycleInterval: cfg.CycleInterval(),
		ClassifyOnly:  opts.ClassifyOnly,
	}

	if !opts.ClassifyOnly {
		pcfg.Smoother, err = activity.NewSmoother(cfg.AverageWindow, cfg.RequiredMajority)
		if err != nil {
			return t, err
		}
		sinks, err := t.buildTransports(ctx, cfg, clock, logger)
		if err != nil {
			return t, err
		}
		pcfg.Publisher = activity.NewPublisher(sinks)
	}

	t.pipeline, err = pipeline.New(pcfg)
	return t, err
}

func buildSensor(cfg *config.Config, logger *slog.Logger) (sensors.AxisReader, error) {
	var sensor sensors.AxisReader
	switch cfg.SensorSource {
	case config.SensorMPU9250:
		sensor = sensors.NewMPU9250(sensors.MPU9250Options{
			SPIDevice:  cfg.IMUSPIDevice,
			CSPin:      cfg.IMUCSPin,
			AccelRange: cfg.IMUAccelRange,
			GyroRange:  cfg.IMUGyroRange,
			Channel:    sensors.Channel(cfg.SensorChannel),
		}, logger)
	case config.SensorSerial:
		sensor = sensors.NewSerial(cfg.SerialPort, cfg.SerialBaudRate)
	case config.SensorMock:
		logger.Info("tracker: using mock sensor", "activity", cfg.MockActivity)
		sensor = sensors.NewMockSource(cfg.MockActivity, cfg.SampleFrequencyHz)
	default:
		return nil, fmt.Errorf("unknown sensor source %q", cfg.SensorSource)
	}

	if err := sensor.Begin(); err != nil {
		return nil, fmt.Errorf("failed to initialize %s sensor: %w", cfg.SensorSource, err)
	}
	return sensor, nil
}

// buildTransports opens every configured transport. The websocket hub is
// always created so the status server can report the published value.
func (t *tracker) buildTransports(ctx context.Context, cfg *config.Config, clock timeutil.Clock, logger *slog.Logger) (*transport.Multi, error) {
	multi := transport.NewMulti()
	t.hub = transport.NewHub(clock, logger)

	for _, name := range cfg.Transports {
		switch name {
		case config.TransportMQTT:
			m, err := transport.NewMQTT(transport.MQTTOptions{
				Broker:   cfg.MQTTBroker,
				ClientID: cfg.MQTTClientID,
				Topic:    cfg.TopicActivity,
			}, clock, logger)
			if err != nil {
				return nil, err
			}
			t.closers = append(t.closers, m)
			multi.Add(name, m)

		case config.TransportRedis:
			r, err := transport.NewRedis(ctx, cfg.RedisAddr, cfg.RedisKey, clock)
			if err != nil {
				return nil, err
			}
			t.closers = append(t.closers, r)
			multi.Add(name, r)

		case config.TransportBLE:
			b, err := transport.NewBLE(transport.BLEOptions{
				LocalName:          cfg.BLELocalName,
				ServiceUUID:        cfg.BLEServiceUUID,
				CharacteristicUUID: cfg.BLECharacteristicUUID,
			}, logger)
			if err != nil {
				return nil, err
			}
			multi.Add(name, b)
			t.gate = b

		case config.TransportDisplay:
			d, err := transport.NewDisplay(cfg.DisplayI2CBus, clock)
			if err != nil {
				return nil, err
			}
			t.closers = append(t.closers, d)
			multi.Add(name, d)

		case config.TransportWebSocket:
			// added below
		default:
			return nil, fmt.Errorf("unknown transport %q", name)
		}
	}
	multi.Add(config.TransportWebSocket, t.hub)

	logger.Info("tracker: transports ready", "count", multi.Len())
	return multi, nil
}
