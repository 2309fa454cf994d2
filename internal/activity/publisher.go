// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package activity

import "context"

// Notifier is the notification transport. Every WriteValue notifies the
// subscribers, whether or not the value changed.
type Notifier interface {
	WriteValue(ctx context.Context, value int) error
}

// Publisher forwards an activity to the transport only when it differs
// from the last published one. It is not safe for concurrent use; the
// control loop owns it.
type Publisher struct {
	notifier  Notifier
	published Activity
}

// NewPublisher returns a Publisher whose published state starts at None.
func NewPublisher(notifier Notifier) *Publisher {
	return &Publisher{notifier: notifier, published: None}
}

// Init writes the current published state once, so subscribers start from a
// defined value.
func (p *Publisher) Init(ctx context.Context) error {
	return p.notifier.WriteValue(ctx, int(p.published))
}

// PublishIfChanged writes decision when it differs from the published state
// and reports whether a write was issued. The state is updated before the
// write, so a failed write is not retried for the same transition.
func (p *Publisher) PublishIfChanged(ctx context.Context, decision Activity) (bool, error) {
	if decision == p.published {
		return false, nil
	}
	p.published = decision
	return true, p.notifier.WriteValue(ctx, int(decision))
}

// Published is the last activity written.
func (p *Publisher) Published() Activity { return p.published }
