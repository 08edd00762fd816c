package command

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/vo2ctl/internal/protocol"
	"github.com/danmuck/vo2ctl/internal/recording"
	"github.com/danmuck/vo2ctl/internal/telemetry"
	"github.com/rs/zerolog/log"
)

// Outcome is what one dispatched line asks the session to do.
type Outcome struct {
	// Frame is the command frame to write, nil when nothing is sent.
	Frame []byte
	Quit  bool
}

// StateReader is the read side of the telemetry state.
type StateReader interface {
	Snapshot() telemetry.Snapshot
}

// Recorder is the part of the recording controller commands drive.
type Recorder interface {
	Start(path string) error
	Stop(reason string) bool
	Status() recording.Status
}

// Dispatcher turns input lines into outcomes. It is owned by the command
// task and is not safe for concurrent Dispatch calls.
type Dispatcher struct {
	state    StateReader
	rec      Recorder
	out      io.Writer
	duration time.Duration
	now      func() time.Time
	intent   string
}

func NewDispatcher(state StateReader, rec Recorder, out io.Writer, recordDuration time.Duration) *Dispatcher {
	return &Dispatcher{
		state:    state,
		rec:      rec,
		out:      out,
		duration: recordDuration,
		now:      time.Now,
	}
}

// Dispatch handles one line. Usage problems come back as *UsageError,
// unrecognized verbs as ErrInvalidCommand and recording open failures as
// recording.ErrResource; none of them produce a frame.
func (d *Dispatcher) Dispatch(line string) (Outcome, error) {
	cmd := Parse(line)
	switch cmd.Verb {
	case "":
		return Outcome{}, nil
	case "run":
		d.intent = "run"
		return Outcome{Frame: protocol.EncodeRun(true)}, nil
	case "stop":
		d.intent = "stop"
		d.rec.Stop(recording.ReasonStopped)
		return Outcome{Frame: protocol.EncodeRun(false)}, nil
	case "cycle":
		return d.valueFrame(cmd, protocol.TagCycle, "cycle <number of cycles>")
	case "on":
		return d.valueFrame(cmd, protocol.TagMicrosOn, "on <microseconds>")
	case "off":
		return d.valueFrame(cmd, protocol.TagMicrosOff, "off <microseconds>")
	case "program":
		return d.emptyFrame(protocol.TagProgram)
	case "debug":
		return d.emptyFrame(protocol.TagDebug)
	case "list":
		d.printStatus()
		return Outcome{}, nil
	case "record":
		return Outcome{}, d.record(cmd)
	case "quit", "q":
		d.rec.Stop(recording.ReasonQuit)
		return Outcome{Quit: true}, nil
	case "help", "h", "?":
		fmt.Fprintln(d.out)
		fmt.Fprintln(d.out, d.usage())
		return Outcome{}, nil
	default:
		fmt.Fprintln(d.out)
		fmt.Fprintln(d.out, "Invalid command format. "+d.usage())
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidCommand, cmd.Verb)
	}
}

func (d *Dispatcher) usage() string {
	return fmt.Sprintf(Usage, d.duration)
}

func (d *Dispatcher) valueFrame(cmd Command, tag protocol.Tag, format string) (Outcome, error) {
	if len(cmd.Args) == 0 {
		return Outcome{}, &UsageError{Verb: cmd.Verb, Format: format, Reason: "missing argument"}
	}
	v, err := ParseUint32(cmd.Args[0])
	if err != nil {
		return Outcome{}, &UsageError{Verb: cmd.Verb, Format: format, Reason: err.Error()}
	}
	b, err := protocol.EncodeValue(tag, v)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Frame: b}, nil
}

func (d *Dispatcher) emptyFrame(tag protocol.Tag) (Outcome, error) {
	b, err := protocol.EncodeEmpty(tag)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Frame: b}, nil
}

func (d *Dispatcher) record(cmd Command) error {
	if len(cmd.Args) == 0 {
		return &UsageError{Verb: cmd.Verb, Format: "record <file path>", Reason: "missing file path"}
	}
	path := strings.Join(cmd.Args, " ")
	if err := d.rec.Start(path); err != nil {
		return fmt.Errorf("failed to open the file for writing (command format: record <file path>): %w", err)
	}
	fmt.Fprintf(d.out, "recording to %s for %s\n", path, d.duration)
	return nil
}

func (d *Dispatcher) printStatus() {
	snap := d.state.Snapshot()
	st := d.rec.Status()
	intent := d.intent
	if intent == "" {
		intent = "none"
	}

	fmt.Fprintln(d.out)
	fmt.Fprintf(d.out, "running: %t\n", snap.Running)
	fmt.Fprintf(d.out, "requested: %s\n", intent)
	fmt.Fprintf(d.out, "cycle_count: %d\n", snap.CycleCount)
	fmt.Fprintf(d.out, "source_voltage: %0.3fV\n", snap.SourceVoltage)
	fmt.Fprintf(d.out, "current1: %0.3fA\n", snap.Current1)
	fmt.Fprintf(d.out, "current2: %0.3fA\n", snap.Current2)
	fmt.Fprintf(d.out, "button: %t\n", snap.Button)
	fmt.Fprintf(d.out, "micros_on: %d\n", snap.MicrosOn)
	fmt.Fprintf(d.out, "micros_off: %d\n", snap.MicrosOff)
	if st.Active {
		remaining := st.Deadline.Sub(d.now()).Round(time.Second)
		if remaining < 0 {
			remaining = 0
		}
		fmt.Fprintf(d.out, "recording: true (%s, %d rows, %s left)\n", st.Path, st.Rows, remaining)
	} else {
		fmt.Fprintln(d.out, "recording: false")
	}
	fmt.Fprintln(d.out)
	log.Debug().Bool("recording", st.Active).Msg("command.Dispatcher.list")
}

// ParseUint32 accepts a base-10 integer in [0, 4294967295] with an optional
// sign, so "+5" and "-0" are valid.
func ParseUint32(raw string) (uint32, error) {
	raw = strings.TrimSpace(raw)
	digits, negative := strings.CutPrefix(raw, "-")
	if !negative {
		digits = strings.TrimPrefix(digits, "+")
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%q is not an integer", raw)
	}
	if negative && (err != nil || v != 0) {
		return 0, fmt.Errorf("value %s is negative", raw)
	}
	if err != nil || v > math.MaxUint32 {
		return 0, fmt.Errorf("value %s exceeds %d", raw, uint32(math.MaxUint32))
	}
	return uint32(v), nil
}
