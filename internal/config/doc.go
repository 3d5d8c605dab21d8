// Package config loads, normalizes, and validates the TOML configuration
// shared by the fetchmill daemon and CLI.
package config
