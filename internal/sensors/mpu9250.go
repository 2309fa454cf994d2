// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log/slog"

	"github.com/relabs-tech/fittrack/internal/imu"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// Channel selects which MPU9250 triad feeds the window.
type Channel string

const (
	ChannelAccel Channel = "accel"
	ChannelGyro  Channel = "gyro"
)

// MPU9250Options configures the SPI wiring and ranges.
type MPU9250Options struct {
	SPIDevice  string
	CSPin      string
	AccelRange byte // 0=±2g, 1=±4g, 2=±8g, 3=±16g
	GyroRange  byte // 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	Channel    Channel
}

// MPU9250 reads one triad of an MPU9250 and scales it to g.
type MPU9250 struct {
	opts   MPU9250Options
	imu    *mpu9250.MPU9250
	scale  float64
	logger *slog.Logger
}

// NewMPU9250 returns an unstarted reader; Begin opens the device.
func NewMPU9250(opts MPU9250Options, logger *slog.Logger) *MPU9250 {
	if logger == nil {
		logger = slog.Default()
	}
	return &MPU9250{opts: opts, logger: logger}
}

// Begin initializes the periph host, the SPI transport and the device.
func (s *MPU9250) Begin() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("%w: periph host init: %v", ErrDevice, err)
	}

	cs := gpioreg.ByName(s.opts.CSPin)
	if cs == nil {
		return fmt.Errorf("%w: CS pin %q not found", ErrDevice, s.opts.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(s.opts.SPIDevice, cs)
	if err != nil {
		return fmt.Errorf("%w: SPI transport (%s): %v", ErrDevice, s.opts.SPIDevice, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return fmt.Errorf("%w: device creation: %v", ErrDevice, err)
	}

	if err := dev.Init(); err != nil {
		return fmt.Errorf("%w: initialization: %v", ErrDevice, err)
	}

	if err := dev.SetAccelRange(s.opts.AccelRange); err != nil {
		return fmt.Errorf("%w: set accel range: %v", ErrDevice, err)
	}
	if err := dev.SetGyroRange(s.opts.GyroRange); err != nil {
		return fmt.Errorf("%w: set gyro range: %v", ErrDevice, err)
	}

	switch s.opts.Channel {
	case ChannelAccel:
		// 16384 LSB/g at ±2g, halved for every range step
		s.scale = float64(int(1)<<s.opts.AccelRange) / 16384.0
		s.logger.Info("imu: accelerometer range set", "range", s.opts.AccelRange, "g", []int{2, 4, 8, 16}[s.opts.AccelRange])
	case ChannelGyro:
		// 131 LSB/(°/s) at ±250°/s. The reference firmware feeds the gyro
		// triad through the same g scale, so the model expects it unchanged.
		s.scale = float64(int(1)<<s.opts.GyroRange) / 131.0
		s.logger.Info("imu: gyroscope range set", "range", s.opts.GyroRange, "dps", []int{250, 500, 1000, 2000}[s.opts.GyroRange])
	default:
		return fmt.Errorf("%w: unknown channel %q", ErrDevice, s.opts.Channel)
	}

	if err := dev.Calibrate(); err != nil {
		s.logger.Warn("imu: calibration failed", "err", err)
	} else {
		s.logger.Info("imu: calibration complete")
	}

	s.imu = dev
	s.logger.Info("imu: device OK", "spi", s.opts.SPIDevice, "channel", s.opts.Channel)
	return nil
}

// ReadAxis reads a single axis of the configured triad.
func (s *MPU9250) ReadAxis(axis imu.Axis) (float64, error) {
	if s.imu == nil {
		return 0, fmt.Errorf("%w: device not started", ErrSensorRead)
	}

	var (
		raw int16
		err error
	)
	switch {
	case s.opts.Channel == ChannelAccel && axis == imu.AxisX:
		raw, err = s.imu.GetAccelerationX()
	case s.opts.Channel == ChannelAccel && axis == imu.AxisY:
		raw, err = s.imu.GetAccelerationY()
	case s.opts.Channel == ChannelAccel && axis == imu.AxisZ:
		raw, err = s.imu.GetAccelerationZ()
	case axis == imu.AxisX:
		raw, err = s.imu.GetRotationX()
	case axis == imu.AxisY:
		raw, err = s.imu.GetRotationY()
	case axis == imu.AxisZ:
		raw, err = s.imu.GetRotationZ()
	default:
		return 0, fmt.Errorf("%w: unknown axis %d", ErrSensorRead, axis)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %v", ErrSensorRead, s.opts.Channel, axis, err)
	}
	return float64(raw) * s.scale, nil
}
