// Package services defines shared utilities consumed by the pipeline stages
// and external tool integrations.
//
// It owns the structured error markers plus the Wrap helper that tag failures
// for consistent classification: validation and configuration problems stop a
// run, transient failures are retried, everything else is recorded and
// skipped. Subpackages wrap the individual external tools (ffmpeg, youtube).
package services
