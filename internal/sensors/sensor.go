// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors provides tri-axis motion sources: an MPU9250 over SPI,
// a line-oriented serial device, and a synthetic mock.
package sensors

import (
	"errors"

	"github.com/relabs-tech/fittrack/internal/imu"
)

var (
	// ErrDevice is returned by Begin when the sensor cannot be brought up.
	ErrDevice = errors.New("sensor device error")
	// ErrSensorRead is returned when a single axis read fails.
	ErrSensorRead = errors.New("sensor read error")
)

// AxisReader is the sensor collaborator used by the acquirer.
// ReadAxis returns the reading in g, before unit conversion.
type AxisReader interface {
	Begin() error
	ReadAxis(axis imu.Axis) (float64, error)
}
