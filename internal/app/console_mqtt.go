// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/fittrack/internal/config"
	"github.com/relabs-tech/fittrack/internal/transport"
)

// RunConsoleMQTT prints every activity message from the MQTT topic to out
// until ctx is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID("fittrack-console-" + uuid.NewString()[:8])

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	logger.Info("console: connected to MQTT broker", "broker", cfg.MQTTBroker)

	var mu sync.Mutex
	token := client.Subscribe(cfg.TopicActivity, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var m transport.Message
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			logger.Warn("console: activity unmarshal error", "err", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(out, FormatActivity(m))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	logger.Info("console: subscribed", "topic", cfg.TopicActivity)

	<-ctx.Done()
	logger.Info("console: shutting down")
	return nil
}

// FormatActivity renders one console line.
func FormatActivity(m transport.Message) string {
	return fmt.Sprintf("[ACTIVITY] %-8s value=%d  at=%s",
		m.Activity, m.Value, m.Time.Local().Format("15:04:05"))
}
