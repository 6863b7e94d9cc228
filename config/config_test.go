package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/retroenv/retrogolib/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.DefaultBank)
	assert.Equal(t, "mappings/mappings.csv", cfg.Mappings)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, 1, cfg.DefaultBank)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
mappings: /etc/mapper/live.csv
defaultBank: 3
initialTrigger:
  channel: 1
  note: 8
aliases:
  SynthA: "SynthA MIDI 1"
pollInterval: 500ms
`
	assert.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "/etc/mapper/live.csv", cfg.Mappings)
	assert.Equal(t, 3, cfg.DefaultBank)
	assert.Equal(t, 8, cfg.InitialTrigger.Note)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "SynthA MIDI 1", cfg.PortFor("SynthA"))
	assert.Equal(t, "Other", cfg.PortFor("Other"))
	// untouched fields keep defaults
	assert.Equal(t, 1, len(cfg.IgnorePorts))
	assert.Equal(t, "Midi Through", cfg.IgnorePorts[0])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero bank", func(c *Config) { c.DefaultBank = 0 }},
		{"no mappings", func(c *Config) { c.Mappings = "" }},
		{"trigger channel", func(c *Config) { c.InitialTrigger.Channel = 17 }},
		{"trigger note", func(c *Config) { c.InitialTrigger = TriggerConfig{Channel: 1, Note: 200} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.DefaultBank = 4

	assert.NoError(t, cfg.Save(path))

	loaded, err := LoadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, 4, loaded.DefaultBank)
	assert.Equal(t, cfg.PollInterval, loaded.PollInterval)
}
