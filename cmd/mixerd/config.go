// config.go - Configuration management for the mixer daemon
package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
)

// Config represents the daemon configuration
type Config struct {
	// Pool settings
	TreeDepth    int    `json:"tree_depth"`
	Denomination string `json:"denomination"` // decimal field element

	// File paths
	StatePath string `json:"state_path"`
	KeyDir    string `json:"key_dir"`

	// Network
	ListenAddr string            `json:"listen_addr"`
	NodeID     string            `json:"node_id"`
	GossipAddr string            `json:"gossip_addr"`
	Peers      map[string]string `json:"peers"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Withdraw rate limiting
	WithdrawBurst     int `json:"withdraw_burst"`
	WithdrawPerMinute int `json:"withdraw_per_minute"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		TreeDepth:         20,
		Denomination:      "1000000000000000000",
		StatePath:         "mixer_state.json",
		KeyDir:            "keys",
		ListenAddr:        ":8080",
		NodeID:            "operator",
		GossipAddr:        "localhost:9000",
		Peers:             map[string]string{},
		LogLevel:          "info",
		LogFile:           "",
		WithdrawBurst:     10,
		WithdrawPerMinute: 60,
	}
}

// LoadConfig loads configuration from file or creates default
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		var config Config
		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		return &config, nil
	}

	// Create default config and save it
	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.TreeDepth < 1 || c.TreeDepth > 31 {
		return fmt.Errorf("tree_depth must be between 1 and 31")
	}
	d, ok := new(big.Int).SetString(c.Denomination, 10)
	if !ok || d.Sign() <= 0 {
		return fmt.Errorf("denomination must be a positive decimal integer")
	}
	if c.StatePath == "" {
		return fmt.Errorf("state_path must not be empty")
	}
	if c.KeyDir == "" {
		return fmt.Errorf("key_dir must not be empty")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.WithdrawBurst <= 0 {
		return fmt.Errorf("withdraw_burst must be positive")
	}
	if c.WithdrawPerMinute <= 0 {
		return fmt.Errorf("withdraw_per_minute must be positive")
	}
	return nil
}

// DenominationValue parses the configured denomination.
func (c *Config) DenominationValue() *big.Int {
	d, _ := new(big.Int).SetString(c.Denomination, 10)
	return d
}
