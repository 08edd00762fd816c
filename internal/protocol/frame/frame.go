package frame

import (
	"errors"
	"fmt"
	"io"
)

// Size is the fixed length of every frame on the wire: one tag byte plus a
// four byte little-endian payload.
const Size = 5

var (
	ErrTransport     = errors.New("frame: transport failure")
	ErrFrameLength   = errors.New("frame: command frame must be exactly 5 bytes")
	ErrBlockTooLarge = errors.New("frame: extension block too large")
)

// Fixed is one raw frame.
type Fixed [Size]byte

// Tag returns the frame's first byte.
func (f Fixed) Tag() byte { return f[0] }

// Payload returns bytes 1-4.
func (f Fixed) Payload() []byte { return f[1:] }

// Limits constrains extension reads.
type Limits struct {
	MaxBlockBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxBlockBytes: 64 * 1024,
	}
}

// ReadFixed performs one exact 5 byte read. Any short read or reader error is
// reported as ErrTransport.
func ReadFixed(r io.Reader) (Fixed, error) {
	var f Fixed
	if _, err := io.ReadFull(r, f[:]); err != nil {
		return Fixed{}, fmt.Errorf("%w: read frame: %w", ErrTransport, err)
	}
	return f, nil
}

// ReadBlock performs one exact read of n extension bytes following a frame.
func ReadBlock(r io.Reader, n uint32, limits Limits) ([]byte, error) {
	if limits.MaxBlockBytes > 0 && n > limits.MaxBlockBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrBlockTooLarge, n, limits.MaxBlockBytes)
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: read block: %w", ErrTransport, err)
	}
	return buf, nil
}

// Write sends one encoded command frame. Buffers that are not exactly Size
// bytes are refused before anything reaches w.
func Write(w io.Writer, b []byte) error {
	if len(b) != Size {
		return fmt.Errorf("%w: got %d", ErrFrameLength, len(b))
	}
	n, err := w.Write(b)
	if err != nil {
		return fmt.Errorf("%w: write frame: %w", ErrTransport, err)
	}
	if n != Size {
		return fmt.Errorf("%w: short write %d/%d", ErrTransport, n, Size)
	}
	return nil
}
