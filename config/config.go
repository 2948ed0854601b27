// Package config loads construction-time options for the frame scheduler
// host from a small TOML file
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config holds host-level scheduler options
type Config struct {
	// EnableDebugLogging routes scheduler debug output to the process logger
	EnableDebugLogging bool `toml:"enable_debug_logging"`

	// DefaultMultiplierProfile names the beat-sync scaling profile applied
	// to animations registered without explicit levels:
	// standard, subtle or aggressive
	DefaultMultiplierProfile string `toml:"default_multiplier_profile"`

	// TargetFPS is the nominal host frame rate
	TargetFPS int `toml:"target_fps"`

	// SignaturePath is where the aesthetic signature snapshot persists
	SignaturePath string `toml:"signature_path"`
}

// Default returns the production defaults
func Default() Config {
	return Config{
		DefaultMultiplierProfile: "standard",
		TargetFPS:                60,
		SignaturePath:            "beatframe-signature.yaml",
	}
}

// Load reads path over the defaults. A missing file is not an error;
// a malformed one is
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = Default().TargetFPS
	}
	return cfg, nil
}
