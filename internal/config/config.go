// Package config reads rulekit's environment configuration.
//
// Every variable has a matching CLI flag; the environment supplies the
// flag defaults and flags win.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/rulekit/internal/engine"
)

// Prefix is prepended to every variable name.
const Prefix = "RULEKIT_"

// Config holds the settings shared by the CLI commands.
type Config struct {
	// DB is the session log path used by run --db, replay and trace.
	DB string `env:"DB"`

	Seed              uint64     `env:"SEED"`
	PostTerminalRules bool       `env:"POST_TERMINAL_RULES" envDefault:"false"`
	MaxActionsPerTick int        `env:"MAX_ACTIONS_PER_TICK" envDefault:"10000"`
	LogLevel          slog.Level `env:"LOG_LEVEL" envDefault:"WARN"`
	Format            string     `env:"FORMAT" envDefault:"text"`

	// The *Set fields report whether a session setting was given
	// explicitly, by the environment or a flag. Zero is a valid seed, so
	// the value alone cannot tell.
	SeedSet              bool
	PostTerminalRulesSet bool
	MaxActionsPerTickSet bool
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom parses vars instead of the process environment. Keys carry
// the RULEKIT_ prefix.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	// OnSet also fires for absent variables that have no default, with
	// an empty value; only a non-empty value counts as given.
	opts.OnSet = func(tag string, value any, isDefault bool) {
		if isDefault || value == "" {
			return
		}
		switch strings.TrimPrefix(tag, Prefix) {
		case "SEED":
			cfg.SeedSet = true
		case "POST_TERMINAL_RULES":
			cfg.PostTerminalRulesSet = true
		case "MAX_ACTIONS_PER_TICK":
			cfg.MaxActionsPerTickSet = true
		}
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the type system cannot.
func (c Config) Validate() error {
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%sFORMAT: must be text or json, got %q", Prefix, c.Format)
	}
	if c.MaxActionsPerTick <= 0 {
		return fmt.Errorf("%sMAX_ACTIONS_PER_TICK: must be positive, got %d", Prefix, c.MaxActionsPerTick)
	}
	return nil
}

// EngineOptions turns the explicitly given session settings into engine
// options. Settings left unset produce no option, so whatever the caller
// configured earlier stays in effect.
func (c Config) EngineOptions() []engine.Option {
	var opts []engine.Option
	if c.SeedSet {
		opts = append(opts, engine.WithSeed(c.Seed))
	}
	if c.PostTerminalRulesSet {
		opts = append(opts, engine.WithPostTerminalRules(c.PostTerminalRules))
	}
	if c.MaxActionsPerTickSet {
		opts = append(opts, engine.WithMaxActionsPerTick(c.MaxActionsPerTick))
	}
	return opts
}

// Logger builds a text logger writing to w at LogLevel.
func (c Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}
