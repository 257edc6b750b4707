// Package config loads and merges the sync engine configuration from
// environment variables, command-line flags, an optional JSON file, and
// built-in defaults, in that priority order.
package config
