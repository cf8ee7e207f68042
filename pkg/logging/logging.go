// Package logging configures the zerolog logger shared by the runtime.
//
// Components obtain a child logger with For:
//
//	log := logging.For("dispatch")
//	log.Debug().Int("workers", n).Msg("worker pool started")
//
// The level and formatting come from a Profile and can be overridden with
// environment variables (see EnvLogLevel and friends).
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Environment variables read by Configure.
const (
	// EnvLogLevel overrides the profile level (trace, debug, info, warn, error, off).
	EnvLogLevel = "MODELKIT_LOG_LEVEL"
	// EnvLogTimestamp turns timestamps on or off.
	EnvLogTimestamp = "MODELKIT_LOG_TIMESTAMP"
	// EnvLogNoColor disables colored console output.
	EnvLogNoColor = "MODELKIT_LOG_NOCOLOR"
)

// Profile selects a set of logging defaults.
type Profile int

const (
	// ProfileRuntime logs at info level with timestamps.
	ProfileRuntime Profile = iota
	// ProfileTest logs at debug level without timestamps.
	ProfileTest
)

// Config describes how the root logger is built.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	Output    io.Writer
}

var (
	mu         sync.RWMutex
	root       = zerolog.New(io.Discard)
	configured bool
)

// ConfigureRuntime configures the root logger for binaries.
func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

// ConfigureTests configures the root logger for test runs.
func ConfigureTests() {
	Configure(ProfileTest)
}

// Configure builds the root logger from the profile defaults and
// environment overrides. Only the first call has an effect.
func Configure(profile Profile) {
	mu.Lock()
	defer mu.Unlock()
	if configured {
		return
	}
	cfg := DefaultConfig(profile)
	applyEnvOverrides(&cfg)
	root = build(cfg)
	configured = true
}

// Apply replaces the root logger unconditionally.
func Apply(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	root = build(cfg)
	configured = true
}

// DefaultConfig returns the defaults for a profile.
func DefaultConfig(profile Profile) Config {
	cfg := Config{Output: os.Stderr}
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

// For returns a logger tagged with the given component name.
// Before Configure is called the returned logger discards everything.
func For(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With().Str("component", component).Logger()
}

// SetOutput redirects the root logger, keeping its level.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	root = root.Output(w)
}

// SetLevel changes the root logger level.
func SetLevel(level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	root = root.Level(level)
}

func build(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	writer := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    cfg.NoColor,
		TimeFormat: time.RFC3339,
	}
	if !cfg.Timestamp {
		writer.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	ctx := zerolog.New(writer).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

// ParseLevel maps a user supplied level name to a zerolog level.
// The second result is false when raw is empty or not recognized.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
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
