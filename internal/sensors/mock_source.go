// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"strings"

	"github.com/relabs-tech/fittrack/internal/imu"
)

type waveform struct {
	freqHz    float64
	amplitude [3]float64
	offset    [3]float64
}

var mockWaveforms = map[string]waveform{
	"running": {freqHz: 2.8, amplitude: [3]float64{1.2, 0.6, 1.8}, offset: [3]float64{0, 0, 1}},
	"rowing":  {freqHz: 0.5, amplitude: [3]float64{0.8, 0.1, 0.4}, offset: [3]float64{0, 0, 1}},
	"none":    {freqHz: 0.1, amplitude: [3]float64{0.01, 0.01, 0.01}, offset: [3]float64{0, 0, 1}},
}

// Mock generates a smooth periodic signal resembling the named activity.
// Time advances by one sample period per AxisX read, so the signal does not
// depend on the wall clock.
type Mock struct {
	wave       waveform
	sampleRate float64
	n          int
}

// NewMockSource creates a mock sensor for activity ("Running", "Rowing" or
// "None") sampled at sampleRateHz.
func NewMockSource(activity string, sampleRateHz int) *Mock {
	w, ok := mockWaveforms[strings.ToLower(activity)]
	if !ok {
		w = mockWaveforms["none"]
	}
	return &Mock{wave: w, sampleRate: float64(sampleRateHz)}
}

// Begin always succeeds.
func (m *Mock) Begin() error { return nil }

// ReadAxis returns the waveform value for axis at the current sample.
func (m *Mock) ReadAxis(axis imu.Axis) (float64, error) {
	if axis == imu.AxisX {
		m.n++
	}
	elapsed := float64(m.n) / m.sampleRate
	phase := 2*math.Pi*m.wave.freqHz*elapsed + float64(axis)*math.Pi/3
	return m.wave.offset[axis] + m.wave.amplitude[axis]*math.Sin(phase), nil
}
