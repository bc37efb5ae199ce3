// Package triage assigns a quantitative risk view to each alert: a
// base risk score and confidence fixed by severity, a confidence nudge
// from historical analyst feedback, and a narrative from an external
// reasoning provider with a deterministic fallback. It defines the
// Record model, the Engine, the Provider seam, and the file-backed set
// accessor the review API reads.
package triage
