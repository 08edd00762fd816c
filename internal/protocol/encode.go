package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/danmuck/vo2ctl/internal/protocol/frame"
)

// EncodeRun builds RUN with byte 1 set to 1 (start) or 0 (stop).
func EncodeRun(start bool) []byte {
	buf := make([]byte, frame.Size)
	buf[0] = byte(TagRun)
	if start {
		buf[1] = 1
	}
	return buf
}

// EncodeValue builds a frame carrying v as a little-endian uint32. Only
// CYCLE, MICROS_ON and MICROS_OFF carry a value.
func EncodeValue(tag Tag, v uint32) ([]byte, error) {
	switch tag {
	case TagCycle, TagMicrosOn, TagMicrosOff:
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotValueTag, tag)
	}
	buf := make([]byte, frame.Size)
	buf[0] = byte(tag)
	binary.LittleEndian.PutUint32(buf[1:], v)
	return buf, nil
}

// EncodeEmpty builds a zero-payload request frame for PROGRAM or DEBUG.
func EncodeEmpty(tag Tag) ([]byte, error) {
	switch tag {
	case TagProgram, TagDebug:
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotEmptyTag, tag)
	}
	buf := make([]byte, frame.Size)
	buf[0] = byte(tag)
	return buf, nil
}
