// Package config loads, normalizes, and validates reportwatch configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and turns the [search], [schedule], [date_search] and [manual]
// sections into a validated search.Configuration. The daemon and CLI obtain
// every setting through this package so downstream code receives sanitized
// paths and clear, key-named validation errors.
package config
