// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ocepa/ocepa-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ocepa configuration.
type Config struct {
	Version string `toml:"version"`

	// Client configures the chat client's connection to the proxy.
	Client ClientConfig `toml:"client"`

	// Server configures the proxy.
	Server ServerConfig `toml:"server"`

	// Gemini configures the upstream provider (proxy side only).
	Gemini GeminiConfig `toml:"gemini"`

	// Storage configures session persistence.
	Storage StorageConfig `toml:"storage"`

	// UI configures the terminal interface.
	UI UIConfig `toml:"ui"`
}

// ClientConfig contains chat client settings.
type ClientConfig struct {
	// Endpoint is the proxy base URL the client talks to.
	Endpoint string `toml:"endpoint"`
}

// ServerConfig contains proxy settings.
type ServerConfig struct {
	// Port the proxy listens on.
	Port int `toml:"port"`
}

// GeminiConfig contains upstream provider settings.
type GeminiConfig struct {
	// APIKey is the Gemini API key. Usually supplied via GEMINI_API_KEY
	// rather than written to disk.
	APIKey string `toml:"api_key"`
	// Model is the Gemini model identifier.
	Model string `toml:"model"`
	// BaseURL overrides the Gemini API base URL.
	BaseURL string `toml:"base_url"`
}

// StorageConfig contains session persistence settings.
type StorageConfig struct {
	// Dir is the directory holding persisted sessions (empty = ~/.ocepa).
	Dir string `toml:"dir"`
}

// UIConfig contains terminal interface settings.
type UIConfig struct {
	// Markdown enables rendered markdown for tutor replies.
	Markdown bool `toml:"markdown"`
	// Theme selects the glamour style: "auto", "dark", or "light".
	Theme string `toml:"theme"`
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Client: ClientConfig{
			Endpoint: "http://127.0.0.1:8990",
		},
		Server: ServerConfig{
			Port: 8990,
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		UI: UIConfig{
			Markdown: true,
			Theme:    "auto",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the ocepa configuration directory (~/.ocepa).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to determine home directory: %w", err)
	}
	return filepath.Join(home, ".ocepa"), nil
}

// ConfigPath returns the path to the TOML configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o700)
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration file, applies environment overrides and
// defaults, and validates the result. A missing file is not an error; the
// defaults are returned.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from an explicit file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variables over file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("OCEPA_ENDPOINT"); v != "" {
		c.Client.Endpoint = v
	}
	if v := os.Getenv("OCEPA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("OCEPA_DATA_DIR"); v != "" {
		c.Storage.Dir = v
	}
}

// SetDefaults fills any zero values left after loading.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.Client.Endpoint == "" {
		c.Client.Endpoint = def.Client.Endpoint
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = def.Gemini.Model
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default path atomically with owner-only
// permissions, since the file may carry the API key.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration to an explicit file path.
func SaveToPath(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0o600)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors aggregates all validation failures.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Client.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "client.endpoint",
			Message: fmt.Sprintf("invalid URL %q", c.Client.Endpoint),
		})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port %d out of range 1-65535", c.Server.Port),
		})
	}

	if c.Gemini.BaseURL != "" {
		if u, err := url.Parse(c.Gemini.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "gemini.base_url",
				Message: fmt.Sprintf("invalid URL %q", c.Gemini.BaseURL),
			})
		}
	}

	validThemes := map[string]bool{"auto": true, "dark": true, "light": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme %q, must be one of: auto, dark, light", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// StorageDir returns the effective session storage directory.
func (c *Config) StorageDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	return ConfigDir()
}
