package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	Port      PortConfig      `yaml:"port" json:"port"`
	Broadcast BroadcastConfig `yaml:"broadcast" json:"broadcast"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// PortConfig holds the immutable bring-up intent for the single managed port
type PortConfig struct {
	ID            uint16 `yaml:"id" json:"id"`
	SpeedMbps     uint32 `yaml:"speedMbps" json:"speedMbps"`
	MTU           uint16 `yaml:"mtu" json:"mtu"`
	FEC           string `yaml:"fec" json:"fec"`
	RxQueues      uint16 `yaml:"rxQueues" json:"rxQueues"`
	TxQueues      uint16 `yaml:"txQueues" json:"txQueues"`
	RxDescriptors uint16 `yaml:"rxDescriptors" json:"rxDescriptors"`
	TxDescriptors uint16 `yaml:"txDescriptors" json:"txDescriptors"`
	PoolSize      uint32 `yaml:"poolSize" json:"poolSize"`
	DataRoom      uint32 `yaml:"dataRoom" json:"dataRoom"`
}

// BroadcastConfig holds the event broadcast endpoint configuration
type BroadcastConfig struct {
	Endpoint          string `yaml:"endpoint" json:"endpoint"`
	SendHighWaterMark int    `yaml:"sendHighWaterMark" json:"sendHighWaterMark"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Output string `yaml:"output" json:"output"`
}

// DefaultConfig Default configuration values
var DefaultConfig = Config{
	Port: PortConfig{
		ID:            0,
		SpeedMbps:     10000,
		MTU:           9200,
		FEC:           "none",
		RxQueues:      1,
		TxQueues:      1,
		RxDescriptors: 1024,
		TxDescriptors: 1024,
		PoolSize:      8192,
		DataRoom:      16384,
	},
	Broadcast: BroadcastConfig{
		Endpoint:          "tcp://*:5556",
		SendHighWaterMark: 2000,
	},
	Logging: LoggingConfig{
		Level:  "INFO",
		Output: "stdout",
	},
}

// LoadConfig loads configuration from multiple sources in order of precedence:
// 1. Environment variables (highest precedence)
// 2. Configuration file
// 3. Default values (lowest precedence)
func LoadConfig() (*Config, string, error) {
	config := DefaultConfig

	path, err := loadFromFile(&config)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config file: %w", err)
	}

	loadFromEnv(&config)

	if e := config.Validate(); e != nil {
		return nil, "", fmt.Errorf("configuration validation failed: %w", e)
	}

	return &config, path, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(config *Config) (string, error) {
	configPaths := []string{
		os.Getenv("PORTD_CONFIG_PATH"), // Custom path from environment
		"./config.yaml",                // Current directory
		"./config/config.yaml",         // Config subdirectory
		"/etc/portd/config.yaml",       // System-wide
	}

	for _, path := range configPaths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return "", fmt.Errorf("failed to parse config file %s: %w", path, err)
		}

		return path, nil
	}

	return "built-in defaults (no config file found)", nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(config *Config) {
	if val := os.Getenv("PORTD_PORT_ID"); val != "" {
		if id, err := strconv.ParseUint(val, 10, 16); err == nil {
			config.Port.ID = uint16(id)
		}
	}
	if val := os.Getenv("PORTD_SPEED_MBPS"); val != "" {
		if speed, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.Port.SpeedMbps = uint32(speed)
		}
	}
	if val := os.Getenv("PORTD_MTU"); val != "" {
		if mtu, err := strconv.ParseUint(val, 10, 16); err == nil {
			config.Port.MTU = uint16(mtu)
		}
	}
	if val := os.Getenv("PORTD_FEC"); val != "" {
		config.Port.FEC = val
	}
	if val := os.Getenv("PORTD_RX_QUEUES"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 16); err == nil {
			config.Port.RxQueues = uint16(n)
		}
	}
	if val := os.Getenv("PORTD_TX_QUEUES"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 16); err == nil {
			config.Port.TxQueues = uint16(n)
		}
	}
	if val := os.Getenv("PORTD_RX_DESCRIPTORS"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 16); err == nil {
			config.Port.RxDescriptors = uint16(n)
		}
	}
	if val := os.Getenv("PORTD_TX_DESCRIPTORS"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 16); err == nil {
			config.Port.TxDescriptors = uint16(n)
		}
	}
	if val := os.Getenv("PORTD_POOL_SIZE"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.Port.PoolSize = uint32(n)
		}
	}
	if val := os.Getenv("PORTD_DATA_ROOM"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.Port.DataRoom = uint32(n)
		}
	}
	if val := os.Getenv("PORTD_BROADCAST_ENDPOINT"); val != "" {
		config.Broadcast.Endpoint = val
	}
	if val := os.Getenv("PORTD_BROADCAST_HWM"); val != "" {
		if hwm, err := strconv.Atoi(val); err == nil {
			config.Broadcast.SendHighWaterMark = hwm
		}
	}
	if val := os.Getenv("PORTD_LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
}

// validFECModes lists the accepted YAML/env spellings of a FEC mode.
var validFECModes = map[string]bool{
	"auto":   true,
	"rs":     true,
	"base-r": true,
	"none":   true,
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Port.RxQueues < 1 {
		return fmt.Errorf("port.rxQueues must be >= 1, got %d", c.Port.RxQueues)
	}
	if c.Port.TxQueues < 1 {
		return fmt.Errorf("port.txQueues must be >= 1, got %d", c.Port.TxQueues)
	}
	if c.Port.RxDescriptors < 1 {
		return fmt.Errorf("port.rxDescriptors must be >= 1, got %d", c.Port.RxDescriptors)
	}
	if c.Port.TxDescriptors < 1 {
		return fmt.Errorf("port.txDescriptors must be >= 1, got %d", c.Port.TxDescriptors)
	}
	if c.Port.PoolSize < 1 {
		return fmt.Errorf("port.poolSize must be >= 1, got %d", c.Port.PoolSize)
	}
	if c.Port.MTU < 68 {
		return fmt.Errorf("port.mtu must be >= 68, got %d", c.Port.MTU)
	}
	if c.Port.SpeedMbps == 0 {
		return fmt.Errorf("port.speedMbps must be > 0")
	}
	if !validFECModes[strings.ToLower(c.Port.FEC)] {
		return fmt.Errorf("port.fec must be one of auto, rs, base-r, none; got %q", c.Port.FEC)
	}
	if c.Broadcast.Endpoint == "" {
		return fmt.Errorf("broadcast.endpoint must not be empty")
	}
	if c.Broadcast.SendHighWaterMark < 1 {
		return fmt.Errorf("broadcast.sendHighWaterMark must be >= 1, got %d", c.Broadcast.SendHighWaterMark)
	}
	return nil
}
