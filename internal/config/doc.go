// Package config loads, normalizes, and validates reelsmith configuration data.
//
// It supplies repository defaults (segment length, quality thresholds, render
// profile, caption palette), expands user paths including tilde shortcuts,
// reads TOML files, and honours environment fallbacks such as HF_TOKEN. The
// Config type centralizes the directory contract shared by the extractor, the
// segment library and the render orchestrator so every stage resolves the same
// locations in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
