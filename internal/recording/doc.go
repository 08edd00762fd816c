// Package recording owns the bounded-duration telemetry capture.
//
// Ownership boundary:
// - one optional open CSV sink and its expiry deadline
// - row encoding for the telemetry and samples policies
// - single-owner close between the expiry timer and explicit stop
package recording
