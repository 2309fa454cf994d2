// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// StandardGravity converts g-force readings to m/s².
const StandardGravity = 9.80665

// Axis selects one of the three sensor axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes lists the axes in the order they are stored in a window.
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "?"
	}
}

// Sample is a single tri-axis reading in m/s².
type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FromG converts a tri-axis reading in g to a Sample in m/s².
func FromG(x, y, z float64) Sample {
	return Sample{
		X: x * StandardGravity,
		Y: y * StandardGravity,
		Z: z * StandardGravity,
	}
}
