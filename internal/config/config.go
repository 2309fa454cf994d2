// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Transport names accepted by TRANSPORTS.
const (
	TransportMQTT      = "mqtt"
	TransportRedis     = "redis"
	TransportBLE       = "ble"
	TransportDisplay   = "display"
	TransportWebSocket = "websocket"
)

// Sensor source names accepted by SENSOR_SOURCE.
const (
	SensorMPU9250 = "mpu9250"
	SensorSerial  = "serial"
	SensorMock    = "mock"
)

// Config holds all application configuration values.
type Config struct {
	// Pipeline
	SampleFrequencyHz   int
	SamplesPerWindow    int
	ConfidenceThreshold float64
	AverageWindow       int
	RequiredMajority    int
	CycleIntervalMS     int
	SensorReadTimeoutMS int

	// Sensor
	SensorSource  string
	SensorChannel string // "accel" or "gyro"
	MockActivity  string

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// Serial sensor
	SerialPort     string
	SerialBaudRate int

	// Model
	ModelPath string

	// Transports
	Transports []string

	// MQTT
	MQTTBroker    string
	MQTTClientID  string
	TopicActivity string

	// Redis
	RedisAddr string
	RedisKey  string

	// BLE
	BLELocalName          string
	BLEServiceUUID        string
	BLECharacteristicUUID string

	// Display
	DisplayI2CBus string

	// Web Server
	WebServerPort int

	// Logging
	LogLevel string
}

// Package-level unexported variables for the singleton used by the binaries.
// Components never read it; they receive values through their constructors.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config populated with the reference values.
func Default() *Config {
	return &Config{
		SampleFrequencyHz:   50,
		SamplesPerWindow:    100,
		ConfidenceThreshold: 0.95,
		AverageWindow:       15,
		RequiredMajority:    10,
		CycleIntervalMS:     1000,
		SensorReadTimeoutMS: 100,

		SensorSource:  SensorMock,
		SensorChannel: "gyro",
		MockActivity:  "Running",

		IMUSPIDevice: "/dev/spidev0.0",
		IMUCSPin:     "8",

		SerialPort:     "/dev/ttyACM0",
		SerialBaudRate: 115200,

		ModelPath:  "./model.yaml",
		Transports: []string{TransportMQTT},

		MQTTBroker:    "tcp://localhost:1883",
		MQTTClientID:  "fittrack-tracker",
		TopicActivity: "fittrack/activity",

		RedisAddr: "localhost:6379",
		RedisKey:  "fittrack:activity",

		BLELocalName:          "FitTrack",
		BLEServiceUUID:        "0d5b7c3c-c235-4b57-bde8-ce079704ce9b",
		BLECharacteristicUUID: "bc9f3db2-01f0-4c35-a46c-12cc46611ed8",

		WebServerPort: 8080,
		LogLevel:      "info",
	}
}

// Load reads the configuration file and returns a Config struct. Keys that
// are absent keep their Default value.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseRange(key, value string) (byte, error) {
	v, err := parseInt(key, value)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 3 {
		return 0, fmt.Errorf("%s must be 0-3, got %d", key, v)
	}
	return byte(v), nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Pipeline
	case "SAMPLE_FREQUENCY_HZ":
		c.SampleFrequencyHz, err = parseInt(key, value)
	case "SAMPLES_PER_WINDOW":
		c.SamplesPerWindow, err = parseInt(key, value)
	case "CONFIDENCE_THRESHOLD":
		c.ConfidenceThreshold, err = strconv.ParseFloat(value, 64)
		if err != nil {
			err = fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
	case "AVERAGE_WINDOW":
		c.AverageWindow, err = parseInt(key, value)
	case "REQUIRED_MAJORITY":
		c.RequiredMajority, err = parseInt(key, value)
	case "CYCLE_INTERVAL_MS":
		c.CycleIntervalMS, err = parseInt(key, value)
	case "SENSOR_READ_TIMEOUT_MS":
		c.SensorReadTimeoutMS, err = parseInt(key, value)

	// Sensor
	case "SENSOR_SOURCE":
		c.SensorSource = strings.ToLower(value)
	case "SENSOR_CHANNEL":
		c.SensorChannel = strings.ToLower(value)
	case "MOCK_ACTIVITY":
		c.MockActivity = value

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		c.IMUAccelRange, err = parseRange(key, value)
	case "IMU_GYRO_RANGE":
		c.IMUGyroRange, err = parseRange(key, value)

	// Serial sensor
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value)

	// Model
	case "MODEL_PATH":
		c.ModelPath = value

	// Transports
	case "TRANSPORTS":
		c.Transports = nil
		for _, t := range strings.Split(value, ",") {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				c.Transports = append(c.Transports, t)
			}
		}

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_ACTIVITY":
		c.TopicActivity = value

	// Redis
	case "REDIS_ADDR":
		c.RedisAddr = value
	case "REDIS_KEY":
		c.RedisKey = value

	// BLE
	case "BLE_LOCAL_NAME":
		c.BLELocalName = value
	case "BLE_SERVICE_UUID":
		c.BLEServiceUUID = value
	case "BLE_CHARACTERISTIC_UUID":
		c.BLECharacteristicUUID = value

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	// Logging
	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// Validate checks that the values are consistent.
func (c *Config) Validate() error {
	if c.SampleFrequencyHz <= 0 {
		return fmt.Errorf("SAMPLE_FREQUENCY_HZ must be positive, got %d", c.SampleFrequencyHz)
	}
	if c.SamplesPerWindow <= 0 {
		return fmt.Errorf("SAMPLES_PER_WINDOW must be positive, got %d", c.SamplesPerWindow)
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold >= 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be in (0,1), got %g", c.ConfidenceThreshold)
	}
	if c.AverageWindow <= 0 {
		return fmt.Errorf("AVERAGE_WINDOW must be positive, got %d", c.AverageWindow)
	}
	if c.RequiredMajority < 0 || c.RequiredMajority >= c.AverageWindow {
		return fmt.Errorf("REQUIRED_MAJORITY must be in [0,%d), got %d", c.AverageWindow, c.RequiredMajority)
	}
	if c.CycleIntervalMS < 0 {
		return fmt.Errorf("CYCLE_INTERVAL_MS must not be negative, got %d", c.CycleIntervalMS)
	}
	if c.SensorReadTimeoutMS <= 0 {
		return fmt.Errorf("SENSOR_READ_TIMEOUT_MS must be positive, got %d", c.SensorReadTimeoutMS)
	}
	switch c.SensorSource {
	case SensorMPU9250, SensorSerial, SensorMock:
	default:
		return fmt.Errorf("unknown SENSOR_SOURCE %q", c.SensorSource)
	}
	if c.SensorChannel != "accel" && c.SensorChannel != "gyro" {
		return fmt.Errorf("SENSOR_CHANNEL must be accel or gyro, got %q", c.SensorChannel)
	}
	for _, t := range c.Transports {
		switch t {
		case TransportMQTT, TransportRedis, TransportBLE, TransportDisplay, TransportWebSocket:
		default:
			return fmt.Errorf("unknown transport %q in TRANSPORTS", t)
		}
	}
	if c.HasTransport(TransportMQTT) && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required when the mqtt transport is enabled")
	}
	return nil
}

// FrameSize is the number of floats in one sample window.
func (c *Config) FrameSize() int {
	return 3 * c.SamplesPerWindow
}

// SampleInterval is the time between two samples.
func (c *Config) SampleInterval() time.Duration {
	return time.Second / time.Duration(c.SampleFrequencyHz)
}

// CycleInterval is the minimum time between the starts of two
// classification cycles.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.CycleIntervalMS) * time.Millisecond
}

// SensorReadTimeout bounds a single blocking sensor read.
func (c *Config) SensorReadTimeout() time.Duration {
	return time.Duration(c.SensorReadTimeoutMS) * time.Millisecond
}

// HasTransport reports whether name is listed in TRANSPORTS.
func (c *Config) HasTransport(name string) bool {
	for _, t := range c.Transports {
		if t == name {
			return true
		}
	}
	return false
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
