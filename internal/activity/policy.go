// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package activity

import "github.com/relabs-tech/fittrack/internal/inference"

// DefaultConfidenceThreshold is the score a label must strictly exceed.
const DefaultConfidenceThreshold = 0.95

// Policy picks a single activity from a classification result.
type Policy struct {
	Threshold float64
}

// NewPolicy returns a Policy with the given confidence threshold.
func NewPolicy(threshold float64) Policy {
	return Policy{Threshold: threshold}
}

// Decide returns the activity of the highest scoring label whose score is
// strictly above the threshold. Equal scores resolve to the later label. If
// no label qualifies, or the winner is not a known activity, it returns None.
func (p Policy) Decide(result inference.Result) Activity {
	winner := -1
	for i, pred := range result.Classification {
		if !(pred.Value > p.Threshold) { // NaN never qualifies
			continue
		}
		if winner == -1 || pred.Value >= result.Classification[winner].Value {
			winner = i
		}
	}
	if winner == -1 {
		return None
	}
	return FromLabel(result.Classification[winner].Label)
}
