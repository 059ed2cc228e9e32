// Package config loads, validates, and normalizes cvcutter configuration.
//
// Configuration is TOML with a section per subsystem. Load applies defaults,
// expands ~ in every path field, and rejects unusable values before any stage
// runs. The embedded sample_config.toml documents every key and is what
// "cvcutter config init" writes.
package config
