// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package transport delivers activity values to subscribers: MQTT, Redis,
// a BLE characteristic, an OLED display and websocket clients.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/relabs-tech/fittrack/internal/activity"
)

var (
	// ErrDevice is returned when a radio or display cannot be brought up.
	ErrDevice = errors.New("transport device error")
	// ErrNotConnected is returned by writes on a transport without a link.
	ErrNotConnected = errors.New("transport not connected")
)

// Message is the JSON payload published on text transports.
type Message struct {
	Value    int       `json:"value"`
	Activity string    `json:"activity"`
	Time     time.Time `json:"time"`
}

// NewMessage builds the payload for value at t.
func NewMessage(value int, t time.Time) Message {
	return Message{
		Value:    value,
		Activity: activity.FromValue(value).String(),
		Time:     t.UTC(),
	}
}

type namedSink struct {
	name     string
	notifier activity.Notifier
}

// Multi fans a value out to several transports. Every sink is written even
// when an earlier one fails; the errors are joined.
type Multi struct {
	sinks []namedSink
}

// NewMulti returns an empty fan-out.
func NewMulti() *Multi {
	return &Multi{}
}

// Add registers a sink under name.
func (m *Multi) Add(name string, n activity.Notifier) {
	m.sinks = append(m.sinks, namedSink{name: name, notifier: n})
}

// Len is the number of registered sinks.
func (m *Multi) Len() int { return len(m.sinks) }

// WriteValue implements activity.Notifier.
func (m *Multi) WriteValue(ctx context.Context, value int) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.notifier.WriteValue(ctx, value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every value written to it.
type Recorder struct {
	mu     sync.Mutex
	values []int
}

// WriteValue implements activity.Notifier.
func (r *Recorder) WriteValue(_ context.Context, value int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, value)
	return nil
}

// Values returns a copy of the recorded values.
func (r *Recorder) Values() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.values...)
}
