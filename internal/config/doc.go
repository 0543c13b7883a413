// Package config loads, normalizes, and validates subforge's TOML
// configuration. Loading layers an optional config file over built-in
// defaults; normalization expands ~ paths and fills blanks, and validation
// rejects values that would misconfigure the pipeline.
package config
