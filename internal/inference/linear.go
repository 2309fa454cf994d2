// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package inference

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/fittrack/internal/timeutil"
)

// LinearEngine runs a Model: per-axis statistics, an affine layer and a
// sigmoid or softmax activation.
type LinearEngine struct {
	model   *Model
	weights *mat.Dense
	bias    *mat.VecDense
	clock   timeutil.Clock
}

// NewLinearEngine builds an engine for a validated model.
func NewLinearEngine(model *Model, clock timeutil.Clock) (*LinearEngine, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	w := mat.NewDense(len(model.Labels), FeatureCount, nil)
	for i, row := range model.Weights {
		w.SetRow(i, row)
	}
	return &LinearEngine{
		model:   model,
		weights: w,
		bias:    mat.NewVecDense(len(model.Bias), append([]float64(nil), model.Bias...)),
		clock:   clock,
	}, nil
}

// InputFrameSize implements Engine.
func (e *LinearEngine) InputFrameSize() int { return e.model.FrameSize }

// Labels returns the model labels in scan order.
func (e *LinearEngine) Labels() []string { return e.model.Labels }

// SignalFromBuffer implements Engine. The buffer is copied.
func (e *LinearEngine) SignalFromBuffer(buf []float64) (Signal, error) {
	if len(buf) != e.model.FrameSize {
		return Signal{}, fmt.Errorf("%w: buffer has %d values, model %q expects %d",
			ErrSignalConversion, len(buf), e.model.Name, e.model.FrameSize)
	}
	return Signal{data: append([]float64(nil), buf...)}, nil
}

// RunClassifier implements Engine.
func (e *LinearEngine) RunClassifier(ctx context.Context, signal Signal) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if signal.Len() != e.model.FrameSize {
		return Result{}, fmt.Errorf("%w: signal has %d values, want %d", ErrInference, signal.Len(), e.model.FrameSize)
	}

	var res Result

	start := e.clock.Now()
	features := Features(signal.data)
	res.Timing.DSP = e.clock.Since(start)

	start = e.clock.Now()
	var z mat.VecDense
	z.MulVec(e.weights, mat.NewVecDense(len(features), features))
	z.AddVec(&z, e.bias)
	scores := make([]float64, z.Len())
	for i := range scores {
		scores[i] = z.AtVec(i)
	}
	if e.model.Activation == "softmax" {
		softmax(scores)
	} else {
		for i, v := range scores {
			scores[i] = 1 / (1 + math.Exp(-v))
		}
	}
	res.Timing.Classification = e.clock.Since(start)

	res.Classification = make([]Prediction, len(scores))
	for i, v := range scores {
		if math.IsNaN(v) {
			return Result{}, fmt.Errorf("%w: score for %q is NaN", ErrInference, e.model.Labels[i])
		}
		res.Classification[i] = Prediction{Label: e.model.Labels[i], Value: v}
	}

	if e.model.FeatureMean != nil {
		start = e.clock.Now()
		res.Anomaly = anomalyScore(features, e.model.FeatureMean, e.model.FeatureStd)
		res.HasAnomaly = true
		res.Timing.Anomaly = e.clock.Since(start)
	}

	return res, nil
}

// Features computes mean, standard deviation, RMS and peak-to-peak for each
// axis of an interleaved x,y,z window.
func Features(window []float64) []float64 {
	n := len(window) / 3
	out := make([]float64, 0, FeatureCount)
	axis := make([]float64, n)
	for a := 0; a < 3; a++ {
		for i := 0; i < n; i++ {
			axis[i] = window[3*i+a]
		}
		mean, std := stat.MeanStdDev(axis, nil)
		if n < 2 {
			std = 0
		}
		rms := math.Sqrt(floats.Dot(axis, axis) / float64(n))
		ptp := floats.Max(axis) - floats.Min(axis)
		out = append(out, mean, std, rms, ptp)
	}
	return out
}

func softmax(v []float64) {
	m := floats.Max(v)
	var sum float64
	for i := range v {
		v[i] = math.Exp(v[i] - m)
		sum += v[i]
	}
	floats.Scale(1/sum, v)
}

// anomalyScore is the largest absolute z-score of the features.
func anomalyScore(features, mean, std []float64) float64 {
	var worst float64
	for i, f := range features {
		if std[i] == 0 {
			continue
		}
		if z := math.Abs(f-mean[i]) / std[i]; z > worst {
			worst = z
		}
	}
	return worst
}
