// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package timeutil provides a testable abstraction over time operations.
package timeutil

import (
	"context"
	"sync"
	"time"
)

// Clock provides an abstraction over time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration

	// SleepUntil blocks until the clock reaches deadline or ctx is done.
	// A deadline in the past returns immediately.
	SleepUntil(ctx context.Context, deadline time.Time) error
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t.
func (RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// SleepUntil pauses the current goroutine until deadline.
func (RealClock) SleepUntil(ctx context.Context, deadline time.Time) error {
	d := time.Until(deadline)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MockClock is a manually controlled clock for testing. SleepUntil jumps
// the clock forward to the deadline instead of blocking.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Time
}

// NewMockClock creates a new MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Since returns the duration since t.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Advance moves the mock clock forward by the given duration.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SleepUntil records the deadline and moves the clock to it if it lies in
// the future.
func (c *MockClock) SleepUntil(ctx context.Context, deadline time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, deadline)
	if deadline.After(c.now) {
		c.now = deadline
	}
	return nil
}

// Deadlines returns all recorded SleepUntil deadlines.
func (c *MockClock) Deadlines() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]time.Time, len(c.sleeps))
	copy(result, c.sleeps)
	return result
}
