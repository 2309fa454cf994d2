// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/fittrack/internal/imu"
)

// Serial reads tri-axis samples from a device that prints one
// whitespace-separated "x y z" line in g per sample. Reading AxisX pulls a
// new line; AxisY and AxisZ return the rest of that line.
type Serial struct {
	open   func() (io.ReadCloser, error)
	port   io.ReadCloser
	reader *bufio.Reader
	line   [3]float64
	have   bool
}

// NewSerial returns a reader for the given serial port.
func NewSerial(portName string, baudRate int) *Serial {
	return &Serial{
		open: func() (io.ReadCloser, error) {
			return serial.Open(serial.OpenOptions{
				PortName:              portName,
				BaudRate:              uint(baudRate),
				DataBits:              8,
				StopBits:              1,
				MinimumReadSize:       1,
				ParityMode:            serial.PARITY_NONE,
				InterCharacterTimeout: 0,
			})
		},
	}
}

// NewSerialFromReader wraps an already open stream.
func NewSerialFromReader(r io.Reader) *Serial {
	return &Serial{
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(r), nil
		},
	}
}

// Begin opens the port.
func (s *Serial) Begin() error {
	port, err := s.open()
	if err != nil {
		return fmt.Errorf("%w: serial open: %v", ErrDevice, err)
	}
	s.port = port
	s.reader = bufio.NewReader(port)
	return nil
}

// Close releases the port.
func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}

// ReadAxis returns one axis of the current line.
func (s *Serial) ReadAxis(axis imu.Axis) (float64, error) {
	if s.reader == nil {
		return 0, fmt.Errorf("%w: port not open", ErrSensorRead)
	}
	if axis == imu.AxisX || !s.have {
		if err := s.next(); err != nil {
			return 0, err
		}
	}
	if axis < imu.AxisX || axis > imu.AxisZ {
		return 0, fmt.Errorf("%w: unknown axis %d", ErrSensorRead, axis)
	}
	return s.line[axis], nil
}

func (s *Serial) next() error {
	for {
		text, err := s.reader.ReadString('\n')
		if err != nil {
			s.have = false
			return fmt.Errorf("%w: serial: %v", ErrSensorRead, err)
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			// Status lines such as "Device OK!" are interleaved with samples.
			continue
		}
		var vals [3]float64
		parsed := true
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				parsed = false
				break
			}
			vals[i] = v
		}
		if !parsed {
			continue
		}
		s.line = vals
		s.have = true
		return nil
	}
}
