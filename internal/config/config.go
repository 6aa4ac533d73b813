// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"

	"github.com/usbarmory/GoTEE-bist/bist"
)

// Config represents the configuration of the BIST host tool
type Config struct {
	AppID          string    `yaml:"app_id"`
	Package        string    `yaml:"package"`
	EchoPayload    string    `yaml:"echo_payload"`
	OutputBuffer   int       `yaml:"output_buffer"`
	UninstallAfter bool      `yaml:"uninstall_after"`
	TimeoutSec     int       `yaml:"timeout_sec"`
	Log            LogConfig `yaml:"log"`
}

// LogConfig holds log file settings, an empty File logs to stderr
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Load loads configuration from the optional file and environment variables
func Load(filename string) (*Config, error) {
	cfg := Default()

	if filename == "" {
		filename = os.Getenv("BIST_CONFIG")
	}

	if filename != "" {
		if err := loadFromFile(cfg, filename); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", filename, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		AppID:          "00000000000000000000000000000001",
		Package:        "Bist.acp",
		EchoPayload:    "0123456",
		OutputBuffer:   100,
		UninstallAfter: true,
		TimeoutSec:     5,
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if appID := os.Getenv("BIST_APP_ID"); appID != "" {
		cfg.AppID = appID
	}

	if pkg := os.Getenv("BIST_PACKAGE"); pkg != "" {
		cfg.Package = pkg
	}

	if payload := os.Getenv("BIST_ECHO_PAYLOAD"); payload != "" {
		cfg.EchoPayload = payload
	}

	if logFile := os.Getenv("BIST_LOG_FILE"); logFile != "" {
		cfg.Log.File = logFile
	}

	if uninstall := os.Getenv("BIST_UNINSTALL_AFTER"); uninstall != "" {
		if v, err := strconv.ParseBool(uninstall); err == nil {
			cfg.UninstallAfter = v
		}
	}
}

func validateConfig(cfg *Config) error {
	if len(cfg.AppID) != 32 {
		return fmt.Errorf("app_id %q must be 32 hex characters", cfg.AppID)
	}
	if _, err := hex.DecodeString(cfg.AppID); err != nil {
		return fmt.Errorf("app_id %q is not hex: %v", cfg.AppID, err)
	}

	if cfg.Package == "" {
		return fmt.Errorf("package path must be set")
	}

	if n := len(cfg.EchoPayload); n == 0 || n > bist.MaxEchoLen {
		return fmt.Errorf("echo_payload length %d is outside range [1, %d]", n, bist.MaxEchoLen)
	}

	if cfg.OutputBuffer <= 0 {
		return fmt.Errorf("output_buffer %d must be positive", cfg.OutputBuffer)
	}

	if cfg.TimeoutSec <= 0 || cfg.TimeoutSec > 300 {
		return fmt.Errorf("timeout %d seconds is outside reasonable range [1, 300]", cfg.TimeoutSec)
	}

	if cfg.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log max_size_mb %d must be positive", cfg.Log.MaxSizeMB)
	}

	return nil
}
