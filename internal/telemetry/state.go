// Package telemetry holds the latest device-reported values for one session.
package telemetry

import (
	"sync"

	"github.com/danmuck/vo2ctl/internal/protocol"
)

// Snapshot is a point-in-time copy of the device telemetry.
type Snapshot struct {
	Running       bool
	CycleCount    uint32
	SourceVoltage float32
	Current1      float32
	Current2      float32
	Button        bool
	MicrosOn      uint32
	MicrosOff     uint32
}

// State is the session's telemetry snapshot. The decode task is its only
// writer; readers take copies through Snapshot.
type State struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewState() *State {
	return &State{}
}

// Apply assigns the field carried by ev and reports whether ev was scalar
// telemetry. Acks and sample blocks leave the state untouched.
func (s *State) Apply(ev protocol.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch e := ev.(type) {
	case protocol.Run:
		s.snap.Running = e.Running
	case protocol.Cycle:
		s.snap.CycleCount = e.Count
	case protocol.Voltage:
		s.snap.SourceVoltage = e.Volts
	case protocol.Current1:
		s.snap.Current1 = e.Amps
	case protocol.Current2:
		s.snap.Current2 = e.Amps
	case protocol.Button:
		s.snap.Button = e.Pressed
	case protocol.MicrosOn:
		s.snap.MicrosOn = e.Micros
	case protocol.MicrosOff:
		s.snap.MicrosOff = e.Micros
	default:
		return false
	}
	return true
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
