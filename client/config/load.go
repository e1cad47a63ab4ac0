package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPrefix is the environment variable prefix used by FromEnv and Load.
const DefaultPrefix = "FETCH"

// ErrNoSettings is returned by FromFile when the file does not exist.
var ErrNoSettings = errors.New("settings file not found")

// Parse decodes TOML data into Settings and validates them.
func Parse(data []byte) (Settings, error) {
	var s Settings
	if err := toml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}

	if err := Validate(s); err != nil {
		return Settings{}, err
	}

	return s, nil
}

// FromFile reads and validates the TOML settings file at path.
func FromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Settings{}, fmt.Errorf("%w: %s", ErrNoSettings, path)
		}
		return Settings{}, fmt.Errorf("reading settings: %w", err)
	}

	return Parse(data)
}

// FromEnv reads and validates Settings from environment variables named
// with prefix.
func FromEnv(prefix string) (Settings, error) {
	var s Settings
	if err := envconfig.Process(prefix, &s); err != nil {
		return Settings{}, fmt.Errorf("processing environment: %w", err)
	}

	if err := Validate(s); err != nil {
		return Settings{}, err
	}

	return s, nil
}

// Load reads the TOML file at path, if path is not empty, and overlays
// any environment variables named with prefix.
func Load(path, prefix string) (Settings, error) {
	var s Settings
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("reading settings: %w", err)
		}
		if err := toml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("decoding settings: %w", err)
		}
	}

	if err := envconfig.Process(prefix, &s); err != nil {
		return Settings{}, fmt.Errorf("processing environment: %w", err)
	}

	if err := Validate(s); err != nil {
		return Settings{}, err
	}

	return s, nil
}
