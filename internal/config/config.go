// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - Layer optional file and environment overrides in Load.
package config

import (
	"context"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file backing the rating store.
	DBPath string `koanf:"db_path"`

	// KFactor is the Elo K-factor applied to every match.
	KFactor int `koanf:"k_factor"`

	// InitialRating is the fallback rating used when the store is empty.
	InitialRating int `koanf:"initial_rating"`

	// SubscriberBuffer bounds each event stream subscriber's channel.
	// A subscriber that falls this far behind is disconnected.
	SubscriberBuffer int `koanf:"subscriber_buffer"`
}

// New creates a Config with defaults. Context is accepted first to match
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:         "info",
		Addr:             ":8080",
		DBPath:           "elorank.db",
		KFactor:          32,
		InitialRating:    1000,
		SubscriberBuffer: 64,
	}
	return c
}
