package protocol

import "errors"

var (
	// ErrFraming marks a stream that violates the protocol contract. It is
	// not recoverable: the reader may be desynchronized.
	ErrFraming = errors.New("protocol: framing error")

	ErrUnknownTag     = errors.New("protocol: unknown tag")
	ErrOddBlockLength = errors.New("protocol: raw adc block length is odd")
	ErrNotValueTag    = errors.New("protocol: tag does not carry a uint32 command value")
	ErrNotEmptyTag    = errors.New("protocol: tag does not carry an empty command")
)
