// Package services defines shared utilities consumed by the unblock pipeline.
//
// Key responsibilities:
//   - Context helpers that stamp index keys, stage names, and run identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper that separate fatal
//     failures (authentication, configuration) from per-key ones.
package services
