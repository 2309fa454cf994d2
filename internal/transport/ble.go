// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"
)

// BLEOptions configures the GATT peripheral.
type BLEOptions struct {
	LocalName          string
	ServiceUUID        string
	CharacteristicUUID string
}

// BLE exposes the activity as a readable, notifying int32 characteristic and
// tracks whether a central is connected.
type BLE struct {
	adapter *bluetooth.Adapter
	char    bluetooth.Characteristic
	logger  *slog.Logger

	mu        sync.Mutex
	connected bool
	peer      string
	changed   chan struct{}
}

// NewBLE enables the default adapter, registers the activity service and
// starts advertising.
func NewBLE(opts BLEOptions, logger *slog.Logger) (*BLE, error) {
	if logger == nil {
		logger = slog.Default()
	}
	serviceUUID, err := bluetooth.ParseUUID(opts.ServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("invalid service uuid %q: %w", opts.ServiceUUID, err)
	}
	charUUID, err := bluetooth.ParseUUID(opts.CharacteristicUUID)
	if err != nil {
		return nil, fmt.Errorf("invalid characteristic uuid %q: %w", opts.CharacteristicUUID, err)
	}

	b := &BLE{
		adapter: bluetooth.DefaultAdapter,
		logger:  logger,
		changed: make(chan struct{}),
	}
	if err := b.adapter.Enable(); err != nil {
		return nil, fmt.Errorf("%w: enable adapter: %v", ErrDevice, err)
	}
	b.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		b.setConnected(device.Address.String(), connected)
	})

	err = b.adapter.AddService(&bluetooth.Service{
		UUID: serviceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{{
			Handle: &b.char,
			UUID:   charUUID,
			Value:  EncodeInt32(0),
			Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: add service: %v", ErrDevice, err)
	}

	adv := b.adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    opts.LocalName,
		ServiceUUIDs: []bluetooth.UUID{serviceUUID},
	}); err != nil {
		return nil, fmt.Errorf("%w: configure advertisement: %v", ErrDevice, err)
	}
	if err := adv.Start(); err != nil {
		return nil, fmt.Errorf("%w: start advertisement: %v", ErrDevice, err)
	}
	logger.Info("ble: advertising", "name", opts.LocalName, "service", opts.ServiceUUID)
	return b, nil
}

func (b *BLE) setConnected(peer string, connected bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if connected {
		b.logger.Info("ble: connected to central", "address", peer)
		b.peer = peer
	} else {
		b.logger.Info("ble: disconnected from central", "address", peer)
		b.peer = ""
	}
	b.connected = connected
	close(b.changed)
	b.changed = make(chan struct{})
}

// WriteValue implements activity.Notifier. The characteristic value is
// updated even without a central so a later read sees it.
func (b *BLE) WriteValue(_ context.Context, value int) error {
	if _, err := b.char.Write(EncodeInt32(value)); err != nil {
		return fmt.Errorf("ble characteristic write: %w", err)
	}
	return nil
}

// Open reports whether a central is connected.
func (b *BLE) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// WaitOpen blocks until a central connects or ctx is done.
func (b *BLE) WaitOpen(ctx context.Context) error {
	for {
		b.mu.Lock()
		if b.connected {
			b.mu.Unlock()
			return nil
		}
		ch := b.changed
		b.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Peer is the address of the connected central, or empty.
func (b *BLE) Peer() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peer
}

// EncodeInt32 is the characteristic wire format: 4 bytes, little-endian.
func EncodeInt32(v int) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(int32(v)))
	return buf
}

// DecodeInt32 is the inverse of EncodeInt32.
func DecodeInt32(b []byte) (int, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("int32 value must be 4 bytes, got %d", len(b))
	}
	return int(int32(binary.LittleEndian.Uint32(b))), nil
}
