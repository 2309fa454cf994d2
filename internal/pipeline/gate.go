// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pipeline

import "context"

// Gate decides whether cycles should run, e.g. only while a BLE central is
// connected.
type Gate interface {
	// Open reports whether cycles may run now.
	Open() bool
	// WaitOpen blocks until the gate opens or ctx is done.
	WaitOpen(ctx context.Context) error
}

// peerGate is a Gate that can name the peer holding it open.
type peerGate interface {
	Gate
	Peer() string
}

// AlwaysOpen never blocks.
type AlwaysOpen struct{}

func (AlwaysOpen) Open() bool { return true }

func (AlwaysOpen) WaitOpen(ctx context.Context) error { return ctx.Err() }
