// Package protocol owns the device wire contract.
//
// Ownership boundary:
// - tag assignment
// - telemetry event decoding, including the RAW_ADC_BLOCK extension
// - command frame encoding
//
// Raw exact-count frame I/O lives in the frame subpackage.
package protocol
