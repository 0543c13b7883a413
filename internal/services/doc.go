// Package services defines shared utilities consumed by the pipeline stages
// and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, fan-out branch labels,
//     and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into job-fatal versus branch-local severities.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
