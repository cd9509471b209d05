// Package config handles configuration loading from files, defaults, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/johnh2o2/coparent-sub000/internal/slot"
)

// Config holds the application configuration.
type Config struct {
	Care     CareConfig     `toml:"care"`
	Identity IdentityConfig `toml:"identity"`
	LLM      LLMConfig      `toml:"llm"`
	Storage  StorageConfig  `toml:"storage"`
}

// CareConfig bounds the daily window inside which care blocks may be
// scheduled. Blocks are clamped to it on apply.
type CareConfig struct {
	WindowStart string `toml:"window_start"` // e.g., "07:00"
	WindowEnd   string `toml:"window_end"`   // e.g., "19:00"; "24:00" means end of day
}

// IdentityConfig names the person issuing schedule commands.
type IdentityConfig struct {
	Parent string `toml:"parent"` // recorded as requested_by on every change
}

// LLMConfig holds LLM provider settings.
type LLMConfig struct {
	Provider string `toml:"provider"` // "copilot", "ollama", etc.
	Model    string `toml:"model"`    // e.g., "gpt-4o"
	BaseURL  string `toml:"base_url"` // e.g., "http://localhost:11434"
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Care: CareConfig{
			WindowStart: "06:00",
			WindowEnd:   "21:00",
		},
		Identity: IdentityConfig{
			Parent: defaultParent(),
		},
		LLM: LLMConfig{
			Provider: "copilot",
			Model:    "gpt-4o",
			BaseURL:  "http://localhost:11434",
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
		},
	}
}

func defaultParent() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "parent"
}

// defaultDBPath returns the default database path.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "coparent.db"
	}
	return filepath.Join(home, ".local", "share", "coparent", "coparent.db")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "coparent", "config.toml")
}

// Load loads configuration from the default path, merging with defaults and env vars.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from the specified path.
// It starts with defaults, overlays file config if it exists, then applies env overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	// Try to load from file (not an error if it doesn't exist)
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Expand paths
	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads config from a file if it exists.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over file config.
func applyEnvOverrides(cfg *Config) {
	// Care window overrides
	if v := os.Getenv("COPARENT_WINDOW_START"); v != "" {
		cfg.Care.WindowStart = v
	}
	if v := os.Getenv("COPARENT_WINDOW_END"); v != "" {
		cfg.Care.WindowEnd = v
	}

	// Identity overrides
	if v := os.Getenv("COPARENT_PARENT"); v != "" {
		cfg.Identity.Parent = v
	}

	// LLM overrides
	if v := os.Getenv("COPARENT_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("COPARENT_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("COPARENT_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}

	// Storage overrides
	if v := os.Getenv("COPARENT_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validateTime(c.Care.WindowStart, "window_start"); err != nil {
		return err
	}
	if err := validateTime(c.Care.WindowEnd, "window_end"); err != nil {
		return err
	}
	if c.Care.WindowStart >= c.Care.WindowEnd {
		return errors.New("window_start must be before window_end")
	}
	if c.Identity.Parent == "" {
		return errors.New("identity.parent must be set")
	}
	if c.Storage.DBPath == "" {
		return errors.New("db_path must be set")
	}
	return nil
}

// CareWindow converts the configured HH:MM bounds to the slot grid.
func (c *Config) CareWindow() (slot.CareWindow, error) {
	start, err := parseSlot(c.Care.WindowStart)
	if err != nil {
		return slot.CareWindow{}, fmt.Errorf("window_start: %w", err)
	}
	end, err := parseSlot(c.Care.WindowEnd)
	if err != nil {
		return slot.CareWindow{}, fmt.Errorf("window_end: %w", err)
	}
	return slot.NewCareWindow(start, end)
}

// parseSlot converts "HH:MM" to a slot index; "24:00" is end of day.
func parseSlot(v string) (int, error) {
	if v == "24:00" {
		return slot.SlotsPerDay, nil
	}
	if err := validateTime(v, "time"); err != nil {
		return 0, err
	}
	hour := int(v[0]-'0')*10 + int(v[1]-'0')
	minute := int(v[3]-'0')*10 + int(v[4]-'0')
	if hour > 23 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %q", v)
	}
	return slot.FromClock(hour, minute), nil
}

// validateTime checks if a time string is in HH:MM format.
func validateTime(t, field string) error {
	if t == "24:00" {
		return nil
	}
	if len(t) != 5 || t[2] != ':' {
		return fmt.Errorf("%s must be in HH:MM format, got %q", field, t)
	}
	hour := t[0:2]
	min := t[3:5]
	if !isDigits(hour) || !isDigits(min) {
		return fmt.Errorf("%s must be in HH:MM format, got %q", field, t)
	}
	return nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
