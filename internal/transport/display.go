// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"context"
	"fmt"
	"image"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/fittrack/internal/activity"
	"github.com/relabs-tech/fittrack/internal/timeutil"
)

const (
	displayWidth  = 128
	displayHeight = 64
)

// Display shows the current activity on an SSD1306 OLED.
type Display struct {
	bus   i2c.BusCloser
	dev   *ssd1306.Dev
	clock timeutil.Clock
}

// NewDisplay opens the I2C bus (empty name picks the first one) and shows a
// splash screen.
func NewDisplay(busName string, clock timeutil.Clock) (*Display, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize periph: %v", ErrDevice, err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open I2C bus: %v", ErrDevice, err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("%w: failed to initialize display: %v", ErrDevice, err)
	}

	d := &Display{bus: bus, dev: dev, clock: clock}
	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		bus.Close()
		return nil, fmt.Errorf("%w: splash: %v", ErrDevice, err)
	}
	return d, nil
}

// WriteValue implements activity.Notifier.
func (d *Display) WriteValue(_ context.Context, value int) error {
	img := renderActivity(activity.FromValue(value), d.clock.Now())
	return d.dev.Draw(d.dev.Bounds(), img, image.Point{})
}

// Close halts the panel and releases the bus.
func (d *Display) Close() error {
	if err := d.dev.Halt(); err != nil {
		d.bus.Close()
		return err
	}
	return d.bus.Close()
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newFrame()
	drawer.Dot = fixed.P(30, 26)
	drawer.DrawBytes([]byte("FitTrack"))
	drawer.Dot = fixed.P(20, 43)
	drawer.DrawBytes([]byte("Warming up"))
	return img
}

func renderActivity(a activity.Activity, at time.Time) *image1bit.VerticalLSB {
	img, drawer := newFrame()

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawBytes([]byte("Activity"))

	drawer.Dot = fixed.P(10, 36)
	switch a {
	case activity.None:
		drawer.DrawBytes([]byte("-- idle --"))
	default:
		drawer.DrawBytes([]byte(a.String()))
	}

	drawer.Dot = fixed.P(0, 60)
	drawer.DrawBytes([]byte("since " + at.Format("15:04:05")))
	return img
}
