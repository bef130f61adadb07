// Package config loads, normalizes, and validates darkroom's TOML
// configuration.
//
// Load resolves the configuration path (explicit flag, then
// ~/.config/darkroom/config.toml, then ./darkroom.toml), decodes it over
// repository defaults, expands ~ in every path field, and validates the
// result. A missing file is not an error: defaults are returned so read-only
// commands still work, and callers can tell from the exists flag.
package config
