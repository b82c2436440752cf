// Package config loads, normalizes, and validates creatorsync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional dotenv file, and honours
// environment fallbacks such as MARKETPLACE_ACCESS_TOKEN. The Config type
// centralizes every knob the runs and CLI need so tunables like batch size,
// pacing delay, and daily quota are passed explicitly into constructors.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
