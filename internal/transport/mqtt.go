// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/fittrack/internal/timeutil"
)

// MQTTOptions configures the MQTT transport.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Topic    string
}

// MQTT publishes each value as a retained JSON message, so late subscribers
// receive the current activity on subscribe.
type MQTT struct {
	client mqtt.Client
	topic  string
	clock  timeutil.Clock
	logger *slog.Logger
}

// NewMQTT connects to the broker.
func NewMQTT(opts MQTTOptions, clock timeutil.Clock, logger *slog.Logger) (*MQTT, error) {
	if logger == nil {
		logger = slog.Default()
	}
	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt: connection lost", "err", err)
		})

	client := mqtt.NewClient(clientOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	logger.Info("mqtt: connected", "broker", opts.Broker, "topic", opts.Topic)

	return &MQTT{client: client, topic: opts.Topic, clock: clock, logger: logger}, nil
}

// WriteValue implements activity.Notifier.
func (m *MQTT) WriteValue(ctx context.Context, value int) error {
	if !m.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(NewMessage(value, m.clock.Now()))
	if err != nil {
		return fmt.Errorf("json marshal error (activity): %w", err)
	}

	token := m.client.Publish(m.topic, 1, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT publish error (%s): %w", m.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
