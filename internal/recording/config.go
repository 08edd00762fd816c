package recording

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Policy selects what an open recording persists.
type Policy string

const (
	// PolicyTelemetry appends the full snapshot after every scalar update.
	PolicyTelemetry Policy = "telemetry"
	// PolicySamples appends one row per RAW_ADC_BLOCK sample.
	PolicySamples Policy = "samples"
)

const DefaultDuration = 30 * time.Second

var (
	ErrResource      = errors.New("recording: resource error")
	ErrInvalidPolicy = errors.New("recording: invalid policy")
	ErrInvalidConfig = errors.New("recording: invalid config")
)

// Close reasons reported in logs and metrics.
const (
	ReasonExpired  = "expired"
	ReasonStopped  = "stopped"
	ReasonQuit     = "quit"
	ReasonReplaced = "replaced"
	ReasonShutdown = "shutdown"
)

type Config struct {
	Duration time.Duration
	Policy   Policy
}

func DefaultConfig() Config {
	return Config{
		Duration: DefaultDuration,
		Policy:   PolicyTelemetry,
	}
}

func (c Config) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidConfig, c.Duration)
	}
	if _, err := ParsePolicy(string(c.Policy)); err != nil {
		return err
	}
	return nil
}

func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(raw))); p {
	case PolicyTelemetry, PolicySamples:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q (expected telemetry or samples)", ErrInvalidPolicy, raw)
	}
}

// Opener creates the sink for a new recording.
type Opener func(path string) (io.WriteCloser, error)

func createFile(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

type Option func(*Controller)

func WithOpener(open Opener) Option {
	return func(c *Controller) {
		if open != nil {
			c.open = open
		}
	}
}

// WithClock overrides the clock used for deadlines and row timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}
