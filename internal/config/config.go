// Package config loads gavel's configuration from a CUE file validated
// against an embedded schema.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/gavel/internal/money"
)

//go:embed schema.cue
var schemaSrc string

// Config is the resolved configuration.
type Config struct {
	Database    string
	BusyTimeout time.Duration
	Log         LogConfig
	Currency    money.Currency
	// Bidding duration bounds; zero means unbounded on that side.
	MinDuration time.Duration
	MaxDuration time.Duration
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// SlogLevel maps Level to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// file mirrors #Config for decoding.
type file struct {
	Database    string    `json:"database"`
	BusyTimeout string    `json:"busy_timeout"`
	Log         LogConfig `json:"log"`
	Currency    struct {
		Symbol   string `json:"symbol"`
		Decimals int32  `json:"decimals"`
	} `json:"currency"`
	Auction struct {
		MinDuration string `json:"min_duration"`
		MaxDuration string `json:"max_duration"`
	} `json:"auction"`
}

// Default returns the configuration with every schema default applied.
func Default() (Config, error) {
	return Parse(nil, "")
}

// Load reads and validates the CUE file at path. An empty path yields the
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE source against the schema and resolves it. filename is
// used in error positions only.
func Parse(src []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if len(src) > 0 {
		user := ctx.CompileBytes(src, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		v = v.Unify(user)
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	var f file
	if err := v.Decode(&f); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return f.resolve()
}

func (f file) resolve() (Config, error) {
	cfg := Config{
		Database: f.Database,
		Log:      f.Log,
		Currency: money.Currency{Symbol: f.Currency.Symbol, Decimals: f.Currency.Decimals},
	}
	if err := cfg.Currency.Validate(); err != nil {
		return Config{}, err
	}

	var err error
	if cfg.BusyTimeout, err = time.ParseDuration(f.BusyTimeout); err != nil {
		return Config{}, fmt.Errorf("busy_timeout: %w", err)
	}
	if cfg.BusyTimeout < 0 {
		return Config{}, fmt.Errorf("busy_timeout must not be negative")
	}
	if cfg.MinDuration, err = time.ParseDuration(f.Auction.MinDuration); err != nil {
		return Config{}, fmt.Errorf("auction.min_duration: %w", err)
	}
	if cfg.MaxDuration, err = time.ParseDuration(f.Auction.MaxDuration); err != nil {
		return Config{}, fmt.Errorf("auction.max_duration: %w", err)
	}
	if cfg.MinDuration < 0 || cfg.MaxDuration < 0 {
		return Config{}, fmt.Errorf("auction durations must not be negative")
	}
	if cfg.MaxDuration > 0 && cfg.MinDuration > cfg.MaxDuration {
		return Config{}, fmt.Errorf("auction.min_duration %s exceeds max_duration %s", cfg.MinDuration, cfg.MaxDuration)
	}
	return cfg, nil
}
