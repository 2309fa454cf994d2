// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package activity

import "fmt"

// Reference smoothing parameters: an activity must win more than 10 of the
// last 15 windows.
const (
	DefaultAverageWindow    = 15
	DefaultRequiredMajority = 10
)

// MajorityOrder is the order in which activities are tested against the
// majority threshold.
var MajorityOrder = []Activity{Running, Rowing}

// Smoother keeps a sliding window of recent decisions and reports an
// activity only once it dominates a full window. It is not safe for
// concurrent use; the control loop owns it.
type Smoother struct {
	capacity int
	required int
	history  []Activity
}

// NewSmoother returns a Smoother over capacity decisions that requires more
// than required occurrences of an activity.
func NewSmoother(capacity, required int) (*Smoother, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("smoothing window must be positive, got %d", capacity)
	}
	if required < 0 || required >= capacity {
		return nil, fmt.Errorf("required majority %d must be in [0,%d)", required, capacity)
	}
	return &Smoother{
		capacity: capacity,
		required: required,
		history:  make([]Activity, 0, capacity+1),
	}, nil
}

// Smooth records decision and returns the most likely activity. During
// warm-up, while fewer than capacity decisions have been recorded, it always
// returns None.
func (s *Smoother) Smooth(decision Activity) Activity {
	s.history = append(s.history, decision)
	for len(s.history) > s.capacity {
		s.history = append(s.history[:0], s.history[1:]...)
	}

	if len(s.history) < s.capacity {
		return None
	}

	counts := make(map[Activity]int, len(Detectable))
	for _, a := range s.history {
		if a != None {
			counts[a]++
		}
	}

	for _, a := range MajorityOrder {
		if counts[a] > s.required {
			return a
		}
	}
	return None
}

// Len is the number of decisions currently held.
func (s *Smoother) Len() int { return len(s.history) }

// History returns a copy of the held decisions, oldest first.
func (s *Smoother) History() []Activity {
	return append([]Activity(nil), s.history...)
}

// Reset clears the history, starting a new warm-up.
func (s *Smoother) Reset() {
	s.history = s.history[:0]
}
