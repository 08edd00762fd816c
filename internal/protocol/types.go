package protocol

import "fmt"

// Tag is the one byte opcode leading every frame.
type Tag uint8

const (
	TagRun Tag = iota
	TagCycle
	TagVoltage
	TagCurrent1
	TagCurrent2
	TagButton
	TagMicrosOn
	TagMicrosOff
	TagProgram
	TagDebug
	TagRawAdcBlock
)

var tagNames = [...]string{
	TagRun:         "run",
	TagCycle:       "cycle",
	TagVoltage:     "voltage",
	TagCurrent1:    "current1",
	TagCurrent2:    "current2",
	TagButton:      "button",
	TagMicrosOn:    "micros_on",
	TagMicrosOff:   "micros_off",
	TagProgram:     "program",
	TagDebug:       "debug",
	TagRawAdcBlock: "raw_adc_block",
}

// Known reports whether t is part of the wire contract.
func (t Tag) Known() bool {
	return int(t) < len(tagNames)
}

func (t Tag) String() string {
	if t.Known() {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// Event is one decoded telemetry frame.
type Event interface {
	Tag() Tag
}

type Run struct{ Running bool }

type Cycle struct{ Count uint32 }

type Voltage struct{ Volts float32 }

type Current1 struct{ Amps float32 }

type Current2 struct{ Amps float32 }

type Button struct{ Pressed bool }

type MicrosOn struct{ Micros uint32 }

type MicrosOff struct{ Micros uint32 }

type ProgramAck struct{}

type DebugAck struct{}

// RawAdcBlock carries little-endian uint16 samples read from the frame's
// extension bytes.
type RawAdcBlock struct{ Samples []uint16 }

func (Run) Tag() Tag         { return TagRun }
func (Cycle) Tag() Tag       { return TagCycle }
func (Voltage) Tag() Tag     { return TagVoltage }
func (Current1) Tag() Tag    { return TagCurrent1 }
func (Current2) Tag() Tag    { return TagCurrent2 }
func (Button) Tag() Tag      { return TagButton }
func (MicrosOn) Tag() Tag    { return TagMicrosOn }
func (MicrosOff) Tag() Tag   { return TagMicrosOff }
func (ProgramAck) Tag() Tag  { return TagProgram }
func (DebugAck) Tag() Tag    { return TagDebug }
func (RawAdcBlock) Tag() Tag { return TagRawAdcBlock }
