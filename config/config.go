package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// TriggerConfig is a note pushed through the mapper at startup
type TriggerConfig struct {
	Channel int `yaml:"channel"` // 1-16, 0 disables
	Note    int `yaml:"note"`
	// Port the note is treated as coming from (empty: first input)
	Port string `yaml:"port,omitempty"`
}

// DebugLogConfig controls the rotating trace file
type DebugLogConfig struct {
	Path       string `yaml:"path,omitempty"`
	MaxSizeMB  int    `yaml:"maxSizeMB,omitempty"`
	MaxBackups int    `yaml:"maxBackups,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Mappings       string            `yaml:"mappings"`
	DefaultBank    int               `yaml:"defaultBank"`
	InitialTrigger TriggerConfig     `yaml:"initialTrigger,omitempty"`
	IgnorePorts    []string          `yaml:"ignorePorts,omitempty"`
	Aliases        map[string]string `yaml:"aliases,omitempty"` // mapping device name -> port name
	PollInterval   time.Duration     `yaml:"pollInterval,omitempty"`
	DebugLog       DebugLogConfig    `yaml:"debugLog,omitempty"`
	Palette        string            `yaml:"palette,omitempty"` // GIMP palette for the monitor
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mappings:    "mappings/mappings.csv",
		DefaultBank: 1,
		IgnorePorts: []string{
			"Midi Through",
		},
		PollInterval: 2 * time.Second,
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "midi-mapper"), nil
}

// ConfigPath returns the full path to config.yaml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config from the default location, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. A missing file yields the defaults;
// fields absent from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Mappings == "" {
		return fmt.Errorf("no mappings file configured")
	}
	if c.DefaultBank < 1 {
		return fmt.Errorf("invalid defaultBank %d (must be 1 or more)", c.DefaultBank)
	}
	if t := c.InitialTrigger; t.Channel != 0 {
		if t.Channel < 1 || t.Channel > 16 {
			return fmt.Errorf("invalid initialTrigger channel %d (must be 1-16)", t.Channel)
		}
		if t.Note < 0 || t.Note > 127 {
			return fmt.Errorf("invalid initialTrigger note %d (must be 0-127)", t.Note)
		}
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("invalid pollInterval %s", c.PollInterval)
	}
	return nil
}

// Save writes the config to path, or to the default location if path is empty
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// PortFor returns the port name configured for a mapping device name
func (c *Config) PortFor(device string) string {
	if port, ok := c.Aliases[device]; ok {
		return port
	}
	return device
}
