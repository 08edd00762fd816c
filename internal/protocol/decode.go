package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/danmuck/vo2ctl/internal/protocol/frame"
)

// Decoder reads telemetry events from a device stream. It is not safe for
// concurrent use; the decode task owns it.
type Decoder struct {
	r      io.Reader
	limits frame.Limits
}

func NewDecoder(r io.Reader, limits frame.Limits) *Decoder {
	return &Decoder{r: r, limits: limits}
}

// Next blocks until one full event has been read. Errors wrap either
// frame.ErrTransport or ErrFraming.
func (d *Decoder) Next() (Event, error) {
	f, err := frame.ReadFixed(d.r)
	if err != nil {
		return nil, err
	}
	tag := Tag(f.Tag())
	if tag != TagRawAdcBlock {
		return DecodeFixed(f)
	}

	n := binary.LittleEndian.Uint32(f.Payload())
	if n%2 != 0 {
		return nil, fmt.Errorf("%w: %w: n=%d", ErrFraming, ErrOddBlockLength, n)
	}
	block, err := frame.ReadBlock(d.r, n, d.limits)
	if err != nil {
		if errors.Is(err, frame.ErrBlockTooLarge) {
			return nil, fmt.Errorf("%w: %w", ErrFraming, err)
		}
		return nil, err
	}
	samples := make([]uint16, n/2)
	for i := range samples {
		samples[i] = binary.LittleEndian.Uint16(block[2*i:])
	}
	return RawAdcBlock{Samples: samples}, nil
}

// DecodeFixed decodes a frame whose meaning is fully contained in its 5
// bytes. RAW_ADC_BLOCK needs its extension and is rejected here.
func DecodeFixed(f frame.Fixed) (Event, error) {
	p := f.Payload()
	switch tag := Tag(f.Tag()); tag {
	case TagRun:
		return Run{Running: p[0] == 1}, nil
	case TagCycle:
		return Cycle{Count: binary.LittleEndian.Uint32(p)}, nil
	case TagVoltage:
		return Voltage{Volts: le32f(p)}, nil
	case TagCurrent1:
		return Current1{Amps: le32f(p)}, nil
	case TagCurrent2:
		return Current2{Amps: le32f(p)}, nil
	case TagButton:
		return Button{Pressed: p[0] > 0}, nil
	case TagMicrosOn:
		return MicrosOn{Micros: binary.LittleEndian.Uint32(p)}, nil
	case TagMicrosOff:
		return MicrosOff{Micros: binary.LittleEndian.Uint32(p)}, nil
	case TagProgram:
		return ProgramAck{}, nil
	case TagDebug:
		return DebugAck{}, nil
	case TagRawAdcBlock:
		return nil, fmt.Errorf("%w: %s needs its extension block", ErrFraming, tag)
	default:
		return nil, fmt.Errorf("%w: %w: %d", ErrFraming, ErrUnknownTag, uint8(tag))
	}
}

func le32f(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
