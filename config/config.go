// Package config loads engine configuration from YAML, with defaults that
// run the demo out of the box. Flags in cmd override file values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/tickbridge/bridge"
	"github.com/lixenwraith/tickbridge/command"
	"github.com/lixenwraith/tickbridge/parameter"
)

// Config mirrors the YAML document
type Config struct {
	TickMs       int    `yaml:"tick_ms"`
	FrameMs      int    `yaml:"frame_ms"`
	RingCapacity int    `yaml:"ring_capacity"`
	MaxEntities  int    `yaml:"max_entities"`
	Topology     string `yaml:"topology"` // auto | single | partial | full

	Inspector InspectorConfig `yaml:"inspector"`
	Audio     AudioConfig     `yaml:"audio"`
}

type InspectorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type AudioConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		TickMs:       int(parameter.DefaultTickInterval / time.Millisecond),
		FrameMs:      int(parameter.DefaultFrameInterval / time.Millisecond),
		RingCapacity: parameter.DefaultRingCapacity,
		MaxEntities:  parameter.DefaultMaxEntities,
		Topology:     "auto",
		Inspector: InspectorConfig{
			Enabled: false,
			Addr:    "127.0.0.1:7810",
		},
		Audio: AudioConfig{Enabled: true},
	}
}

// Load reads path over the defaults; a missing file is not an error, the
// defaults simply stand
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot construct from
func (c Config) Validate() error {
	if c.TickMs <= 0 {
		return fmt.Errorf("config: tick_ms must be positive, got %d", c.TickMs)
	}
	if c.FrameMs <= 0 {
		return fmt.Errorf("config: frame_ms must be positive, got %d", c.FrameMs)
	}
	if c.RingCapacity <= command.MaxEncodedSize {
		return fmt.Errorf("config: ring_capacity %d cannot hold the largest command (%d bytes)",
			c.RingCapacity, command.MaxEncodedSize)
	}
	if c.MaxEntities <= 0 {
		return fmt.Errorf("config: max_entities must be positive, got %d", c.MaxEntities)
	}
	if _, err := c.TopologyOverride(); err != nil {
		return err
	}
	return nil
}

// TickInterval returns the simulation step as a duration
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

// FrameInterval returns the presentation pace as a duration
func (c Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameMs) * time.Millisecond
}

// TopologyOverride maps the topology field to the bridge enum
func (c Config) TopologyOverride() (bridge.Topology, error) {
	switch c.Topology {
	case "", "auto":
		return bridge.Auto, nil
	case "single":
		return bridge.SingleThread, nil
	case "partial":
		return bridge.PartialIsolation, nil
	case "full":
		return bridge.FullIsolation, nil
	default:
		return bridge.Auto, fmt.Errorf("config: unknown topology %q", c.Topology)
	}
}
