// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package inference

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Per-axis features, in the order they appear in the feature vector.
var axisFeatures = []string{"mean", "std", "rms", "ptp"}

// FeatureCount is the length of the feature vector for a tri-axis window.
var FeatureCount = 3 * len(axisFeatures)

// Model is a precomputed linear classifier over window features.
//
// Weights apply to the raw feature vector. FeatureMean and FeatureStd are
// optional; when present they only feed the anomaly score.
type Model struct {
	Name         string      `yaml:"name"`
	FrameSize    int         `yaml:"frame_size"`
	SampleRateHz int         `yaml:"sample_rate_hz"`
	Labels       []string    `yaml:"labels"`
	Activation   string      `yaml:"activation"` // "sigmoid" (default) or "softmax"
	Weights      [][]float64 `yaml:"weights"`
	Bias         []float64   `yaml:"bias"`
	FeatureMean  []float64   `yaml:"feature_mean,omitempty"`
	FeatureStd   []float64   `yaml:"feature_std,omitempty"`
}

// LoadModel reads and validates a model file.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return ParseModel(data)
}

// ParseModel decodes and validates a YAML model.
func ParseModel(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the model dimensions.
func (m *Model) Validate() error {
	if m.FrameSize <= 0 || m.FrameSize%3 != 0 {
		return fmt.Errorf("model %q: frame_size %d is not a positive multiple of 3", m.Name, m.FrameSize)
	}
	if len(m.Labels) == 0 {
		return fmt.Errorf("model %q: no labels", m.Name)
	}
	if len(m.Weights) != len(m.Labels) {
		return fmt.Errorf("model %q: %d weight rows for %d labels", m.Name, len(m.Weights), len(m.Labels))
	}
	for i, row := range m.Weights {
		if len(row) != FeatureCount {
			return fmt.Errorf("model %q: weight row %d has %d values, want %d", m.Name, i, len(row), FeatureCount)
		}
	}
	if len(m.Bias) != len(m.Labels) {
		return fmt.Errorf("model %q: %d biases for %d labels", m.Name, len(m.Bias), len(m.Labels))
	}
	if (m.FeatureMean == nil) != (m.FeatureStd == nil) {
		return fmt.Errorf("model %q: feature_mean and feature_std must be given together", m.Name)
	}
	if m.FeatureMean != nil && (len(m.FeatureMean) != FeatureCount || len(m.FeatureStd) != FeatureCount) {
		return fmt.Errorf("model %q: feature statistics must have %d values", m.Name, FeatureCount)
	}
	switch m.Activation {
	case "", "sigmoid", "softmax":
	default:
		return fmt.Errorf("model %q: unknown activation %q", m.Name, m.Activation)
	}
	return nil
}
