package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the sync
// engine. It aggregates all sub-configurations and is populated by merging
// values from environment variables, command-line flags, an optional JSON
// file, and built-in defaults.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// Storage holds configuration for the embedded local store.
	Storage Storage `envPrefix:"STORAGE_"`

	// Adapter holds configuration for the remote backend connection.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Workers holds configuration for the background sync worker.
	Workers Workers `envPrefix:"WORKERS_"`

	// Logs holds log output settings.
	Logs Logs `envPrefix:"LOGS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// Storage groups the configuration for the embedded local store.
type Storage struct {
	// DB holds the local database connection settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the embedded SQLite database.
type DB struct {
	// DSN is the SQLite file path (e.g. "~/.mapsync/local.db").
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Adapter holds configuration for the remote object-store backend.
type Adapter struct {
	// BaseURL is the HTTP base URL of the remote backend
	// (e.g. "https://sync.example.com").
	// Env: ADAPTER_BASE_URL
	BaseURL string `env:"BASE_URL"`

	// RequestTimeout is the maximum duration allowed for a single remote
	// request before it is cancelled (e.g. "30s", "1m").
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds configuration for the background sync worker and the
// vault-level lock manager.
type Workers struct {
	// SyncInterval is the period of the worker's fallback ticker.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`

	// BatchSize bounds how many queued operations one worker cycle drains.
	// Env: WORKERS_BATCH_SIZE
	BatchSize int `env:"BATCH_SIZE"`

	// MaxBackoff caps the per-map exponential retry delay.
	// Env: WORKERS_MAX_BACKOFF
	MaxBackoff time.Duration `env:"MAX_BACKOFF"`

	// LockTTL is the lifetime of a full-vault reconciliation lock.
	// Env: WORKERS_LOCK_TTL
	LockTTL time.Duration `env:"LOCK_TTL"`
}

// Logs holds log output settings.
type Logs struct {
	// File is the path of the rotated log file. Empty means stdout.
	// Env: LOGS_FILE
	File string `env:"FILE"`
}

// GetStructuredConfig loads, merges, and validates the engine configuration
// from all available sources in the following priority order (first source
// wins for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//  4. Built-in defaults
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		withDefaults().
		build()
}
