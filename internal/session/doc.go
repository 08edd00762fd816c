// Package session runs one client session against one device connection.
//
// Ownership boundary:
// - the decode task (only writer of telemetry state)
// - the command task (only writer of the outbound direction)
// - shutdown: closing the recording and releasing the transport exactly once
package session
