// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pipeline runs the acquire, classify, decide, smooth and publish
// cycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/relabs-tech/fittrack/internal/activity"
	"github.com/relabs-tech/fittrack/internal/inference"
	"github.com/relabs-tech/fittrack/internal/metrics"
	"github.com/relabs-tech/fittrack/internal/timeutil"
)

// WindowSource produces one sample window per call.
type WindowSource interface {
	AcquireWindow(ctx context.Context) ([]float64, error)
}

// Classifier turns a window into per-label scores.
type Classifier interface {
	Classify(ctx context.Context, window []float64) (inference.Result, error)
}

// Config wires the stages of a Pipeline.
type Config struct {
	Source     WindowSource
	Classifier Classifier
	Policy     activity.Policy
	Smoother   *activity.Smoother
	Publisher  *activity.Publisher
	Clock      timeutil.Clock
	Logger     *slog.Logger
	Metrics    *metrics.Metrics

	// CycleInterval is the minimum time from the start of one cycle to the
	// start of the next. A cycle that takes longer is followed immediately.
	CycleInterval time.Duration
	// ClassifyOnly logs predictions without smoothing or publishing.
	ClassifyOnly bool
}

// Status is a snapshot of the last cycle, safe to read from other
// goroutines.
type Status struct {
	Decision  activity.Activity
	Smoothed  activity.Activity
	Published activity.Activity
	Anomaly   float64
	Cycles    int
	Failures  int
	LastError string
	UpdatedAt time.Time
}

// Pipeline owns the smoother history and the published state. Only the
// goroutine calling Run or Cycle touches them.
type Pipeline struct {
	cfg Config

	mu     sync.Mutex
	status Status
}

// New validates cfg and returns a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Source == nil || cfg.Classifier == nil {
		return nil, errors.New("pipeline: source and classifier are required")
	}
	if !cfg.ClassifyOnly && (cfg.Smoother == nil || cfg.Publisher == nil) {
		return nil, errors.New("pipeline: smoother and publisher are required")
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.CycleInterval < 0 {
		return nil, fmt.Errorf("pipeline: negative cycle interval %v", cfg.CycleInterval)
	}
	return &Pipeline{cfg: cfg}, nil
}

// Status returns the latest cycle snapshot.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Cycle runs one acquire, classify, decide, smooth, publish pass. A cycle
// that fails before a decision leaves the smoother history untouched.
func (p *Pipeline) Cycle(ctx context.Context) error {
	log := p.cfg.Logger
	start := p.cfg.Clock.Now()

	log.Info("Sampling...")
	window, err := p.cfg.Source.AcquireWindow(ctx)
	if err != nil {
		p.fail(metrics.KindAcquire, err)
		return fmt.Errorf("acquire window: %w", err)
	}

	res, err := p.cfg.Classifier.Classify(ctx, window)
	if err != nil {
		p.fail(metrics.KindClassify, err)
		return fmt.Errorf("classify window: %w", err)
	}
	logResult(log, res)
	if res.HasAnomaly {
		p.cfg.Metrics.Anomaly(res.Anomaly)
	}

	decision := p.cfg.Policy.Decide(res)
	p.cfg.Metrics.Decided(decision.String())

	if p.cfg.ClassifyOnly {
		log.Info("Current activity", "activity", decision)
		p.update(func(s *Status) {
			s.Decision = decision
			s.Anomaly = res.Anomaly
		})
		p.cfg.Metrics.CycleCompleted(p.cfg.Clock.Since(start))
		return nil
	}

	smoothed := p.cfg.Smoother.Smooth(decision)
	log.Info("Current activity", "activity", decision)
	log.Info("Most likely activity", "activity", smoothed)

	wrote, pubErr := p.cfg.Publisher.PublishIfChanged(ctx, smoothed)
	if wrote {
		p.cfg.Metrics.Published(int(smoothed))
		log.Info("pipeline: activity published", "activity", smoothed, "value", int(smoothed))
	}
	p.update(func(s *Status) {
		s.Decision = decision
		s.Smoothed = smoothed
		s.Published = p.cfg.Publisher.Published()
		s.Anomaly = res.Anomaly
	})
	if pubErr != nil {
		p.fail(metrics.KindPublish, pubErr)
		return fmt.Errorf("publish %s: %w", smoothed, pubErr)
	}

	p.cfg.Metrics.CycleCompleted(p.cfg.Clock.Since(start))
	return nil
}

// Run writes the initial None value, then runs cycles while gate is open,
// starting one at most every CycleInterval. When the gate closes the session ends
// and Run waits for it to reopen. Smoother history carries over between
// sessions. Run returns when ctx is done.
func (p *Pipeline) Run(ctx context.Context, gate Gate) error {
	log := p.cfg.Logger
	if gate == nil {
		gate = AlwaysOpen{}
	}

	if !p.cfg.ClassifyOnly {
		if err := p.cfg.Publisher.Init(ctx); err != nil {
			log.Warn("pipeline: initial publish failed", "err", err)
		}
	}

	for {
		if err := gate.WaitOpen(ctx); err != nil {
			return err
		}
		if pg, ok := gate.(peerGate); ok {
			log.Info("pipeline: session started", "peer", pg.Peer())
		} else {
			log.Info("pipeline: session started")
		}

		for gate.Open() {
			deadline := p.cfg.Clock.Now().Add(p.cfg.CycleInterval)
			if err := p.Cycle(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn("pipeline: cycle failed", "err", err)
			}
			if err := p.cfg.Clock.SleepUntil(ctx, deadline); err != nil {
				return err
			}
		}
		log.Info("pipeline: session ended")
	}
}

func (p *Pipeline) update(fn func(*Status)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.status)
	p.status.Cycles++
	p.status.LastError = ""
	p.status.UpdatedAt = p.cfg.Clock.Now()
}

func (p *Pipeline) fail(kind string, err error) {
	p.cfg.Metrics.CycleFailed(kind)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Failures++
	p.status.LastError = err.Error()
	p.status.UpdatedAt = p.cfg.Clock.Now()
}

func logResult(log *slog.Logger, res inference.Result) {
	log.Debug("Timing",
		"dsp_ms", res.Timing.DSP.Milliseconds(),
		"classification_ms", res.Timing.Classification.Milliseconds(),
		"anomaly_ms", res.Timing.Anomaly.Milliseconds())
	for _, p := range res.Classification {
		log.Info("Prediction", "label", p.Label, "value", fmt.Sprintf("%.5f", p.Value))
	}
	if res.HasAnomaly {
		log.Info("Anomaly", "score", fmt.Sprintf("%.3f", res.Anomaly))
	}
}
