package command

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/vo2ctl/internal/recording"
	"github.com/danmuck/vo2ctl/internal/telemetry"
	"github.com/danmuck/vo2ctl/internal/testutil/testlog"
)

type fakeState struct {
	snap  telemetry.Snapshot
	reads int
}

func (s *fakeState) Snapshot() telemetry.Snapshot {
	s.reads++
	return s.snap
}

type fakeRecorder struct {
	started  []string
	stops    []string
	active   bool
	startErr error
	status   recording.Status
}

func (r *fakeRecorder) Start(path string) error {
	if r.startErr != nil {
		return r.startErr
	}
	r.started = append(r.started, path)
	r.active = true
	return nil
}

func (r *fakeRecorder) Stop(reason string) bool {
	r.stops = append(r.stops, reason)
	was := r.active
	r.active = false
	return was
}

func (r *fakeRecorder) Status() recording.Status {
	st := r.status
	st.Active = r.active
	return st
}

func newTestDispatcher() (*Dispatcher, *fakeState, *fakeRecorder, *bytes.Buffer) {
	state := &fakeState{}
	rec := &fakeRecorder{}
	var out bytes.Buffer
	return NewDispatcher(state, rec, &out, 30*time.Second), state, rec, &out
}

func TestParseSplitsOnWhitespace(t *testing.T) {
	cmd := Parse("  CyClE \t 42   extra ")
	if cmd.Verb != "cycle" {
		t.Fatalf("unexpected verb: %q", cmd.Verb)
	}
	if len(cmd.Args) != 2 || cmd.Args[0] != "42" || cmd.Args[1] != "extra" {
		t.Fatalf("unexpected args: %+v", cmd.Args)
	}
	if got := Parse("   "); got.Verb != "" || len(got.Args) != 0 {
		t.Fatalf("expected empty command, got %+v", got)
	}
}

func TestDispatchFrames(t *testing.T) {
	testlog.Start(t)
	d, _, _, _ := newTestDispatcher()
	cases := []struct {
		line string
		want []byte
	}{
		{line: "run", want: []byte{0, 1, 0, 0, 0}},
		{line: "RUN", want: []byte{0, 1, 0, 0, 0}},
		{line: "stop", want: []byte{0, 0, 0, 0, 0}},
		{line: "cycle 4294967295", want: []byte{1, 255, 255, 255, 255}},
		{line: "cycle 0", want: []byte{1, 0, 0, 0, 0}},
		{line: "on 1500", want: []byte{6, 220, 5, 0, 0}},
		{line: "off 1000000", want: []byte{7, 64, 66, 15, 0}},
		{line: "program", want: []byte{8, 0, 0, 0, 0}},
		{line: "debug", want: []byte{9, 0, 0, 0, 0}},
	}
	for _, tc := range cases {
		out, err := d.Dispatch(tc.line)
		if err != nil {
			t.Fatalf("%q: %v", tc.line, err)
		}
		if !bytes.Equal(out.Frame, tc.want) {
			t.Fatalf("%q: frame got=%v want=%v", tc.line, out.Frame, tc.want)
		}
		if out.Quit {
			t.Fatalf("%q: unexpected quit", tc.line)
		}
	}
}

func TestDispatchArgumentValidation(t *testing.T) {
	testlog.Start(t)
	d, _, _, _ := newTestDispatcher()
	for _, line := range []string{
		"cycle -1",
		"cycle abc",
		"cycle 4294967296",
		"cycle 99999999999999999999999",
		"cycle",
		"on",
		"on 1.5",
		"off -20",
	} {
		out, err := d.Dispatch(line)
		if !errors.Is(err, ErrUsage) {
			t.Fatalf("%q: expected ErrUsage, got %v", line, err)
		}
		var usage *UsageError
		if !errors.As(err, &usage) || usage.Format == "" {
			t.Fatalf("%q: expected usage error with format, got %v", line, err)
		}
		if out.Frame != nil {
			t.Fatalf("%q: no frame may be sent, got %v", line, out.Frame)
		}
	}
}

func TestDispatchAcceptsSignedZeroAndPlus(t *testing.T) {
	testlog.Start(t)
	d, _, _, _ := newTestDispatcher()
	for line, want := range map[string][]byte{
		"cycle -0": {1, 0, 0, 0, 0},
		"on +5":    {6, 5, 0, 0, 0},
	} {
		out, err := d.Dispatch(line)
		if err != nil {
			t.Fatalf("%q: %v", line, err)
		}
		if !bytes.Equal(out.Frame, want) {
			t.Fatalf("%q: frame got=%v want=%v", line, out.Frame, want)
		}
	}
}

func TestUsageErrorNamesFormat(t *testing.T) {
	testlog.Start(t)
	d, _, _, _ := newTestDispatcher()
	_, err := d.Dispatch("off nope")
	if err == nil || !strings.Contains(err.Error(), "off <microseconds>") {
		t.Fatalf("expected format in error, got %v", err)
	}
}

func TestDispatchEmptyIsNoop(t *testing.T) {
	testlog.Start(t)
	d, _, rec, out := newTestDispatcher()
	res, err := d.Dispatch("")
	if err != nil || res.Frame != nil || res.Quit {
		t.Fatalf("empty line must be a no-op: %+v err=%v", res, err)
	}
	if out.Len() != 0 || len(rec.stops) != 0 {
		t.Fatalf("empty line produced side effects")
	}
}

func TestDispatchUnknownPrintsUsage(t *testing.T) {
	testlog.Start(t)
	d, _, _, out := newTestDispatcher()
	res, err := d.Dispatch("launch")
	if !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand, got %v", err)
	}
	if res.Frame != nil {
		t.Fatalf("unexpected frame")
	}
	text := out.String()
	if !strings.Contains(text, "Invalid command format.") {
		t.Fatalf("missing invalid prefix: %q", text)
	}
	for _, verb := range []string{"run", "stop", "cycle", "list", "on", "off", "record", "program", "debug", "quit", "help"} {
		if !strings.Contains(text, "\n"+verb) {
			t.Fatalf("usage missing %q:\n%s", verb, text)
		}
	}
	if !strings.Contains(text, "streams 30s of received data") {
		t.Fatalf("usage should name the configured duration:\n%s", text)
	}
}

func TestDispatchHelpPrintsUsageWithoutError(t *testing.T) {
	testlog.Start(t)
	d, _, _, out := newTestDispatcher()
	if _, err := d.Dispatch("help"); err != nil {
		t.Fatalf("help: %v", err)
	}
	if strings.Contains(out.String(), "Invalid") || !strings.Contains(out.String(), "Valid commands are:") {
		t.Fatalf("unexpected help output: %q", out.String())
	}
}

func TestDispatchStopClosesRecording(t *testing.T) {
	testlog.Start(t)
	d, _, rec, _ := newTestDispatcher()
	if _, err := d.Dispatch("record out.csv"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := d.Dispatch("stop"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(rec.stops) != 1 || rec.stops[0] != recording.ReasonStopped || rec.active {
		t.Fatalf("expected one stop closing the recording: %+v", rec.stops)
	}
}

func TestDispatchQuit(t *testing.T) {
	testlog.Start(t)
	for _, line := range []string{"quit", "q", "Q"} {
		d, _, rec, _ := newTestDispatcher()
		rec.active = true
		res, err := d.Dispatch(line)
		if err != nil {
			t.Fatalf("%q: %v", line, err)
		}
		if !res.Quit || res.Frame != nil {
			t.Fatalf("%q: unexpected outcome %+v", line, res)
		}
		if rec.active || len(rec.stops) != 1 || rec.stops[0] != recording.ReasonQuit {
			t.Fatalf("%q: recording not closed on quit: %+v", line, rec.stops)
		}
	}
}

func TestDispatchRecord(t *testing.T) {
	testlog.Start(t)
	d, _, rec, out := newTestDispatcher()
	if _, err := d.Dispatch("record my data.csv"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(rec.started) != 1 || rec.started[0] != "my data.csv" {
		t.Fatalf("unexpected started paths: %+v", rec.started)
	}
	if !strings.Contains(out.String(), "recording to my data.csv for 30s") {
		t.Fatalf("unexpected output: %q", out.String())
	}

	if _, err := d.Dispatch("record"); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected ErrUsage for missing path, got %v", err)
	}

	rec.startErr = errors.Join(recording.ErrResource, os.ErrPermission)
	res, err := d.Dispatch("record /root/x.csv")
	if !errors.Is(err, recording.ErrResource) {
		t.Fatalf("expected ErrResource, got %v", err)
	}
	if res.Frame != nil || res.Quit {
		t.Fatalf("unexpected outcome: %+v", res)
	}
}

func TestListDoesNotMutate(t *testing.T) {
	testlog.Start(t)
	d, state, rec, out := newTestDispatcher()
	state.snap = telemetry.Snapshot{Running: true, CycleCount: 9, SourceVoltage: 1, Current1: 0.5, MicrosOff: 1000}
	rec.active = true
	now := time.Unix(1700000000, 0)
	d.now = func() time.Time { return now }
	rec.status = recording.Status{Path: "out.csv", Rows: 4, Deadline: now.Add(12 * time.Second)}

	res, err := d.Dispatch("list")
	if err != nil || res.Frame != nil || res.Quit {
		t.Fatalf("list: %+v err=%v", res, err)
	}
	if state.snap != (telemetry.Snapshot{Running: true, CycleCount: 9, SourceVoltage: 1, Current1: 0.5, MicrosOff: 1000}) {
		t.Fatalf("list mutated state")
	}
	if len(rec.started) != 0 || len(rec.stops) != 0 || !rec.active {
		t.Fatalf("list mutated recorder: %+v", rec)
	}
	text := out.String()
	for _, want := range []string{
		"running: true",
		"requested: none",
		"cycle_count: 9",
		"source_voltage: 1.000V",
		"current1: 0.500A",
		"micros_off: 1000",
		"recording: true (out.csv, 4 rows, 12s left)",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("list output missing %q:\n%s", want, text)
		}
	}
}

func TestListShowsRequestedIntent(t *testing.T) {
	testlog.Start(t)
	d, _, _, out := newTestDispatcher()
	if _, err := d.Dispatch("run"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := d.Dispatch("list"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "requested: run") || !strings.Contains(out.String(), "recording: false") {
		t.Fatalf("unexpected list output:\n%s", out.String())
	}
}

func TestParseUint32Bounds(t *testing.T) {
	if v, err := ParseUint32("4294967295"); err != nil || v != 4294967295 {
		t.Fatalf("max: v=%d err=%v", v, err)
	}
	if v, err := ParseUint32(" 0 "); err != nil || v != 0 {
		t.Fatalf("zero: v=%d err=%v", v, err)
	}
	for raw, want := range map[string]uint32{"+5": 5, "-0": 0, "+0": 0, " +4294967295": 4294967295} {
		if v, err := ParseUint32(raw); err != nil || v != want {
			t.Fatalf("%q: v=%d err=%v want=%d", raw, v, err, want)
		}
	}
	for _, raw := range []string{"-1", "abc", "4294967296", "", "0x10", "1e3", "+", "-", "+-5", "-+0", "--0", "+4294967296"} {
		if _, err := ParseUint32(raw); err == nil {
			t.Fatalf("%q: expected error", raw)
		}
	}
}
