// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"

	"github.com/jeranaias/vakil/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete vakil configuration.
type Config struct {
	API     APIConfig     `toml:"api" json:"api"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Speech  SpeechConfig  `toml:"speech" json:"speech"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// APIConfig points at the legal-assistant service.
type APIConfig struct {
	// URL is the service root, e.g. http://localhost:8000.
	URL string `toml:"url" json:"url"`
	// TimeoutSecs bounds a single request.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RatePerSec caps outbound requests. Zero disables the limit.
	RatePerSec float64 `toml:"rate_per_sec" json:"rate_per_sec"`
}

// StorageConfig selects where chats are kept.
type StorageConfig struct {
	// Backend is "file", "sqlite" or "memory".
	Backend string `toml:"backend" json:"backend"`
	// Dir is the data directory. Empty means ~/.vakil/data.
	Dir string `toml:"dir" json:"dir"`
}

// SpeechConfig controls voice features.
type SpeechConfig struct {
	// Synthesize asks the server to read each answer aloud.
	Synthesize bool `toml:"synthesize" json:"synthesize"`
	// Language is the BCP-47 tag for recognition and synthesis.
	Language string `toml:"language" json:"language"`
}

// UIConfig controls terminal presentation.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme" json:"theme"`
	// ShowKeyboard prints the Devanagari keyboard at startup.
	ShowKeyboard bool `toml:"show_keyboard" json:"show_keyboard"`
}

// Defaults.
const (
	DefaultAPIURL      = "http://localhost:8000"
	DefaultTimeoutSecs = 120
	DefaultRatePerSec  = 5.0
	DefaultBackend     = "file"
	DefaultLanguage    = "en-IN"
	DefaultTheme       = "auto"
)

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:         DefaultAPIURL,
			TimeoutSecs: DefaultTimeoutSecs,
			RatePerSec:  DefaultRatePerSec,
		},
		Storage: StorageConfig{
			Backend: DefaultBackend,
		},
		Speech: SpeechConfig{
			Synthesize: true,
			Language:   DefaultLanguage,
		},
		UI: UIConfig{
			Theme: DefaultTheme,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the vakil configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".vakil"), nil
}

// DataDir returns the resolved data directory: storage.dir if set,
// otherwise ~/.vakil/data.
func (c *Config) DataDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// APITimeout returns api.timeout_secs as a duration.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads config.toml, else config.json, from the configuration
// directory. Missing files yield defaults. Environment overrides are
// applied last.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, err
	}
	return LoadDir(dir)
}

// LoadDir is Load rooted at dir.
func LoadDir(dir string) (*Config, error) {
	for _, name := range []string{"config.toml", "config.json"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads a specific TOML or JSON file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON config %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config %s: %w", path, err)
		}
	}

	fillDefaults(cfg)
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in values a file left empty.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.API.URL == "" {
		cfg.API.URL = defaults.API.URL
	}
	if cfg.API.TimeoutSecs == 0 {
		cfg.API.TimeoutSecs = defaults.API.TimeoutSecs
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	if cfg.Speech.Language == "" {
		cfg.Speech.Language = defaults.Speech.Language
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path with 0600 permissions.
// RELIABILITY: Atomic write with fsync prevents a torn config on crash.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# vakil configuration file\n\n")
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every field and returns ValidateErrors listing all
// problems, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.API.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{"api.url", fmt.Sprintf("must be an http(s) URL, got %q", c.API.URL)})
	}
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 3600 {
		errs = append(errs, ValidationError{"api.timeout_secs", "must be between 1 and 3600"})
	}
	if c.API.RatePerSec < 0 {
		errs = append(errs, ValidationError{"api.rate_per_sec", "must not be negative"})
	}

	switch c.Storage.Backend {
	case "file", "sqlite", "memory":
	default:
		errs = append(errs, ValidationError{"storage.backend", fmt.Sprintf("must be file, sqlite or memory, got %q", c.Storage.Backend)})
	}

	if _, err := language.Parse(c.Speech.Language); err != nil {
		errs = append(errs, ValidationError{"speech.language", fmt.Sprintf("not a BCP-47 tag: %q", c.Speech.Language)})
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{"ui.theme", fmt.Sprintf("must be auto, dark or light, got %q", c.UI.Theme)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// LanguageTag returns speech.language in canonical form, e.g. "hi-IN".
func (c *Config) LanguageTag() string {
	tag, err := language.Parse(c.Speech.Language)
	if err != nil {
		return DefaultLanguage
	}
	return tag.String()
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies VAKIL_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("VAKIL_API_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv("VAKIL_DATA_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("VAKIL_STORAGE"); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("VAKIL_THEME"); v != "" {
		c.UI.Theme = strings.ToLower(v)
	}
	if v := os.Getenv("VAKIL_LANGUAGE"); v != "" {
		c.Speech.Language = v
	}
	if v := os.Getenv("VAKIL_SPEECH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Speech.Synthesize = b
		}
	}
}

// String renders the config as TOML.
func (c *Config) String() string {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return sb.String()
}
