// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package activity turns per-window classifier scores into a debounced
// current activity.
package activity

// Activity is the closed set of activities the tracker reports. The integer
// values are the ones written to the notification characteristic.
type Activity int

const (
	None Activity = iota
	Rowing
	Running
)

// Detectable lists every activity a model label can map to.
var Detectable = []Activity{Rowing, Running}

func (a Activity) String() string {
	switch a {
	case Rowing:
		return "Rowing"
	case Running:
		return "Running"
	default:
		return "None"
	}
}

// FromLabel maps a model label to an Activity by exact name. Unknown labels
// map to None.
func FromLabel(label string) Activity {
	for _, a := range Detectable {
		if a.String() == label {
			return a
		}
	}
	return None
}

// FromValue maps a wire value back to an Activity. Unknown values map to None.
func FromValue(v int) Activity {
	a := Activity(v)
	for _, d := range Detectable {
		if a == d {
			return a
		}
	}
	return None
}
