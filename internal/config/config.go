// Package config loads the ingress server's static configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable for the ingress pipeline and simulation loop.
type Config struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// VersionName and ProtocolVersion are echoed in the Status response.
	VersionName     string `yaml:"version_name"`
	ProtocolVersion int    `yaml:"protocol_version"`
	MaxPlayers      int    `yaml:"max_players"`
	Motd            string `yaml:"motd"`

	// CompressionThreshold is sent in LoginCompressionS2c and armed on the
	// decoder immediately after. A zero or absent value falls back to the
	// default (256); a negative value is invalid.
	CompressionThreshold int `yaml:"compression_threshold"`

	// MaxPacketSize bounds a single decoded frame; frames declaring a
	// larger length are fatal for the session.
	MaxPacketSize int `yaml:"max_packet_size"`

	// TickInterval is the simulation's fixed tick rate (50ms / 20Hz).
	TickInterval time.Duration `yaml:"tick_interval"`

	// ReceiveQueueCapacity is loaded and defaulted but not read by any
	// component: ingress.ReceiveQueue buffers without a limit and the
	// proxy side applies no backpressure.
	ReceiveQueueCapacity int `yaml:"receive_queue_capacity"`

	Skin SkinConfig `yaml:"skin"`
}

// SkinConfig tunes the asynchronous skin resolver.
type SkinConfig struct {
	UpstreamURL    string        `yaml:"upstream_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Workers        int           `yaml:"workers"`
	ResultBuffer   int           `yaml:"result_buffer"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		BindAddress:          "0.0.0.0",
		Port:                 25565,
		LogLevel:             "info",
		VersionName:          "1.20.1",
		ProtocolVersion:      763,
		MaxPlayers:           12000,
		Motd:                 "A Minecraft Server",
		CompressionThreshold: 256,
		MaxPacketSize:        2 * 1024 * 1024,
		TickInterval:         50 * time.Millisecond,
		ReceiveQueueCapacity: 256,
		Skin: SkinConfig{
			UpstreamURL:    "https://sessionserver.mojang.com/session/minecraft/profile",
			RequestTimeout: 5 * time.Second,
			Workers:        8,
			ResultBuffer:   1024,
		},
	}
}

// Load reads and parses a YAML config file, filling unset fields with
// defaults. A missing path is not an error — Default() is returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("opening config %s: %w", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// applyDefaults fills any zero-value field left after YAML decoding with
// the corresponding Default() value.
func (c *Config) applyDefaults() error {
	d := Default()

	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.VersionName == "" {
		c.VersionName = d.VersionName
	}
	if c.ProtocolVersion == 0 {
		c.ProtocolVersion = d.ProtocolVersion
	}
	if c.MaxPlayers == 0 {
		c.MaxPlayers = d.MaxPlayers
	}
	if c.CompressionThreshold == 0 {
		c.CompressionThreshold = d.CompressionThreshold
	}
	if c.CompressionThreshold < 0 {
		return fmt.Errorf("compression_threshold must be >= 0, got %d", c.CompressionThreshold)
	}
	if c.MaxPacketSize <= 0 {
		c.MaxPacketSize = d.MaxPacketSize
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.ReceiveQueueCapacity <= 0 {
		c.ReceiveQueueCapacity = d.ReceiveQueueCapacity
	}
	if c.Skin.UpstreamURL == "" {
		c.Skin.UpstreamURL = d.Skin.UpstreamURL
	}
	if c.Skin.RequestTimeout <= 0 {
		c.Skin.RequestTimeout = d.Skin.RequestTimeout
	}
	if c.Skin.Workers <= 0 {
		c.Skin.Workers = d.Skin.Workers
	}
	if c.Skin.ResultBuffer <= 0 {
		c.Skin.ResultBuffer = d.Skin.ResultBuffer
	}

	return nil
}
