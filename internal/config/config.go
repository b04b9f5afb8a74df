package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override, e.g.
// COLDSIGN_DECODER_MAX_CALL_DEPTH.
const EnvPrefix = "COLDSIGN_"

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Reassembly ReassemblyConfig `toml:"reassembly" envPrefix:"REASSEMBLY_"`
	Decoder    DecoderConfig    `toml:"decoder" envPrefix:"DECODER_"`
	Session    SessionConfig    `toml:"session" envPrefix:"SESSION_"`
	Networks   NetworksConfig   `toml:"networks" envPrefix:"NETWORKS_"`
	Accounts   AccountsConfig   `toml:"accounts" envPrefix:"ACCOUNTS_"`
}

type ReassemblyConfig struct {
	MaxFrames     int `toml:"max_frames" env:"MAX_FRAMES"`
	MaxFrameBytes int `toml:"max_frame_bytes" env:"MAX_FRAME_BYTES"`
}

type DecoderConfig struct {
	MaxCallDepth          int `toml:"max_call_depth" env:"MAX_CALL_DEPTH"`
	OversizedPayloadBytes int `toml:"oversized_payload_bytes" env:"OVERSIZED_PAYLOAD_BYTES"`
}

type SessionConfig struct {
	RequireVersionOverride bool `toml:"require_version_override" env:"REQUIRE_VERSION_OVERRIDE"`
}

type NetworksConfig struct {
	// Warm lists network path ids or genesis hashes whose registries are
	// built at startup.
	Warm []string `toml:"warm" env:"WARM" envSeparator:","`
}

type AccountsConfig struct {
	// File is a TOML file of [[account]] entries.
	File string `toml:"file" env:"FILE"`
}

func Default() Config {
	return Config{
		Reassembly: ReassemblyConfig{MaxFrames: 1024, MaxFrameBytes: 4096},
		Decoder:    DecoderConfig{MaxCallDepth: 8, OversizedPayloadBytes: 256},
		Session:    SessionConfig{RequireVersionOverride: true},
		Networks:   NetworksConfig{Warm: []string{"polkadot", "kusama"}},
		Accounts:   AccountsConfig{File: "accounts.toml"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := loadToml(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("config env overrides: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func Validate(cfg Config) error {
	switch {
	case cfg.Reassembly.MaxFrames < 1 || cfg.Reassembly.MaxFrames > 0xffff:
		return fmt.Errorf("%w: reassembly.max_frames must be in [1, 65535]", ErrInvalidConfig)
	case cfg.Reassembly.MaxFrameBytes < 1:
		return fmt.Errorf("%w: reassembly.max_frame_bytes must be positive", ErrInvalidConfig)
	case cfg.Decoder.MaxCallDepth < 1:
		return fmt.Errorf("%w: decoder.max_call_depth must be positive", ErrInvalidConfig)
	case cfg.Decoder.OversizedPayloadBytes < 1:
		return fmt.Errorf("%w: decoder.oversized_payload_bytes must be positive", ErrInvalidConfig)
	}
	for i, ref := range cfg.Networks.Warm {
		if strings.TrimSpace(ref) == "" {
			return fmt.Errorf("%w: networks.warm[%d] is empty", ErrInvalidConfig, i)
		}
	}
	return nil
}
