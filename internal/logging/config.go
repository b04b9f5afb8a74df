package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel     = "COLDSIGN_LOG_LEVEL"
	EnvLogTimestamp = "COLDSIGN_LOG_TIMESTAMP"
	EnvLogNoColor   = "COLDSIGN_LOG_NOCOLOR"
	EnvLogBypass    = "COLDSIGN_LOG_BYPASS"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config is the resolved console logger configuration.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	Bypass    bool
	Out       io.Writer
}

// envOverrides mirrors the COLDSIGN_LOG_* variables. Values stay raw strings
// so unparsable input falls back to the profile default instead of failing.
type envOverrides struct {
	Level     string `env:"COLDSIGN_LOG_LEVEL"`
	Timestamp string `env:"COLDSIGN_LOG_TIMESTAMP"`
	NoColor   string `env:"COLDSIGN_LOG_NOCOLOR"`
	Bypass    string `env:"COLDSIGN_LOG_BYPASS"`
}

var configureOnce sync.Once

func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

func Configure(profile Profile) {
	configureOnce.Do(func() {
		cfg := defaultConfig(profile)
		applyEnvOverrides(&cfg)
		apply(cfg)
	})
}

func defaultConfig(profile Profile) Config {
	cfg := Config{Out: os.Stderr}
	switch profile {
	case ProfileTest:
		cfg.Level = zerolog.DebugLevel
		cfg.Timestamp = false
	default:
		cfg.Level = zerolog.InfoLevel
		cfg.Timestamp = true
	}
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	var raw envOverrides
	if err := env.Parse(&raw); err != nil {
		return
	}
	if lvl, ok := parseLevel(raw.Level); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(raw.Timestamp); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(raw.NoColor); ok {
		cfg.NoColor = v
	}
	if v, ok := parseBool(raw.Bypass); ok {
		cfg.Bypass = v
	}
}

func apply(cfg Config) {
	if cfg.Bypass {
		zerolog.SetGlobalLevel(zerolog.Disabled)
		log.Logger = zerolog.Nop()
		return
	}
	zerolog.SetGlobalLevel(cfg.Level)
	out := zerolog.ConsoleWriter{
		Out:        cfg.Out,
		NoColor:    cfg.NoColor,
		TimeFormat: time.RFC3339,
	}
	if !cfg.Timestamp {
		out.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("app", "coldsign").Logger()
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace", "diagnostics":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none", "inactive":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
