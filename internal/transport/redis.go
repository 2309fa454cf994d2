// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/relabs-tech/fittrack/internal/timeutil"
)

// Redis stores the current activity under a key and publishes every write
// on a channel of the same name.
type Redis struct {
	client *redis.Client
	key    string
	clock  timeutil.Clock
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr, key string, clock timeutil.Clock) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &Redis{client: client, key: key, clock: clock}, nil
}

// WriteValue implements activity.Notifier.
func (r *Redis) WriteValue(ctx context.Context, value int) error {
	payload, err := json.Marshal(NewMessage(value, r.clock.Now()))
	if err != nil {
		return fmt.Errorf("json marshal error (activity): %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key, payload, 0)
		pipe.Publish(ctx, r.key, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis write %s: %w", r.key, err)
	}
	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
