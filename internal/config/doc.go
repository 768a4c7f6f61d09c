// Package config loads, normalizes, and validates mmunblock configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MAILMAN_BASE_URL, MAILMAN_LIST_NAME, and MAILMAN_ADMIN_PW. The Config type
// centralizes every knob the CLI needs, from the console credential to the
// naming conventions of the admin skin.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, parsed index keys, and clear
// validation errors.
package config
