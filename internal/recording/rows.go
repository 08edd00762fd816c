package recording

import (
	"strconv"
	"time"

	"github.com/danmuck/vo2ctl/internal/protocol"
	"github.com/danmuck/vo2ctl/internal/telemetry"
)

var (
	telemetryHeader = []string{
		"timestamp",
		"running",
		"cycle_count",
		"source_voltage",
		"current1",
		"current2",
		"button",
		"micros_on",
		"micros_off",
	}
	samplesHeader = []string{"timestamp", "block", "index", "sample"}
)

func header(p Policy) []string {
	if p == PolicySamples {
		return samplesHeader
	}
	return telemetryHeader
}

// rowsFor converts one decoded event into the rows the policy persists.
// block is the sequence number of the event among RAW_ADC_BLOCK frames.
func rowsFor(p Policy, at time.Time, ev protocol.Event, snap telemetry.Snapshot, block uint64) [][]string {
	ts := formatTimestamp(at)
	switch p {
	case PolicySamples:
		raw, ok := ev.(protocol.RawAdcBlock)
		if !ok {
			return nil
		}
		blockID := strconv.FormatUint(block, 10)
		out := make([][]string, 0, len(raw.Samples))
		for i, sample := range raw.Samples {
			out = append(out, []string{
				ts,
				blockID,
				strconv.Itoa(i),
				strconv.FormatUint(uint64(sample), 10),
			})
		}
		return out
	default:
		if !isScalar(ev) {
			return nil
		}
		return [][]string{{
			ts,
			boolDigit(snap.Running),
			strconv.FormatUint(uint64(snap.CycleCount), 10),
			formatFloat(snap.SourceVoltage),
			formatFloat(snap.Current1),
			formatFloat(snap.Current2),
			boolDigit(snap.Button),
			strconv.FormatUint(uint64(snap.MicrosOn), 10),
			strconv.FormatUint(uint64(snap.MicrosOff), 10),
		}}
	}
}

func isScalar(ev protocol.Event) bool {
	switch ev.(type) {
	case protocol.Run, protocol.Cycle, protocol.Voltage, protocol.Current1, protocol.Current2,
		protocol.Button, protocol.MicrosOn, protocol.MicrosOff:
		return true
	default:
		return false
	}
}

// formatTimestamp renders unix seconds with microsecond precision.
func formatTimestamp(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMicro())/1e6, 'f', 6, 64)
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 6, 32)
}

func boolDigit(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
