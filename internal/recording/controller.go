package recording

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/vo2ctl/internal/observability"
	"github.com/danmuck/vo2ctl/internal/protocol"
	"github.com/danmuck/vo2ctl/internal/telemetry"
	"github.com/rs/zerolog/log"
)

// Status describes the controller without changing it.
type Status struct {
	Active   bool
	Path     string
	Policy   Policy
	Deadline time.Time
	Rows     int
}

type openRecording struct {
	gen         uint64
	path        string
	sink        io.WriteCloser
	w           *csv.Writer
	deadline    time.Time
	rows        int
	blocks      uint64
	writeFailed bool
	timer       *time.Timer
	done        chan struct{}
}

// Controller owns at most one open recording. Every transition and append
// happens under mu; close is a compare-and-clear of cur, so whichever of the
// expiry timer or an explicit stop gets there first releases the sink.
type Controller struct {
	mu   sync.Mutex
	cfg  Config
	open Opener
	now  func() time.Time
	cur  *openRecording
	gen  uint64
}

func NewController(cfg Config, opts ...Option) *Controller {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyTelemetry
	}
	c := &Controller{
		cfg:  cfg,
		open: createFile,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Config() Config {
	return c.cfg
}

// Start opens path, writes the header row and arms the expiry timer. An
// already open recording is replaced only once the new file is ready; if
// path cannot be opened the current recording keeps running.
func (c *Controller) Start(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrResource)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sink, err := c.open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrResource, path, err)
	}
	w := csv.NewWriter(sink)
	if err := w.Write(header(c.cfg.Policy)); err == nil {
		w.Flush()
	}
	if err := w.Error(); err != nil {
		if cerr := sink.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("path", path).Msg("recording.Controller.Start close after header failure")
		}
		return fmt.Errorf("%w: write header %s: %w", ErrResource, path, err)
	}

	if c.cur != nil {
		c.closeLocked(ReasonReplaced)
	}

	c.gen++
	gen := c.gen
	rec := &openRecording{
		gen:      gen,
		path:     path,
		sink:     sink,
		w:        w,
		deadline: c.now().Add(c.cfg.Duration),
		done:     make(chan struct{}),
	}
	rec.timer = time.AfterFunc(c.cfg.Duration, func() { c.expire(gen) })
	c.cur = rec

	log.Info().
		Str("path", path).
		Str("policy", string(c.cfg.Policy)).
		Dur("duration", c.cfg.Duration).
		Msg("recording started")
	return nil
}

// Stop closes the open recording. It reports false when nothing was open.
func (c *Controller) Stop(reason string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return false
	}
	c.closeLocked(reason)
	return true
}

// expire runs on the timer goroutine. A timer from an earlier recording
// must not close a newer one, hence the generation check.
func (c *Controller) expire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil || c.cur.gen != gen {
		return
	}
	c.closeLocked(ReasonExpired)
}

func (c *Controller) closeLocked(reason string) {
	rec := c.cur
	c.cur = nil
	rec.timer.Stop()

	rec.w.Flush()
	if err := rec.w.Error(); err != nil && !rec.writeFailed {
		log.Error().Err(fmt.Errorf("%w: flush %s: %w", ErrResource, rec.path, err)).Msg("recording flush failed")
	}
	if err := rec.sink.Close(); err != nil {
		log.Error().Err(fmt.Errorf("%w: close %s: %w", ErrResource, rec.path, err)).Msg("recording close failed")
	}
	close(rec.done)

	observability.RecordRecordingClosed(reason)
	log.Info().
		Str("path", rec.path).
		Str("reason", reason).
		Int("rows", rec.rows).
		Msg("recording closed")
}

// Observe appends the rows ev produces under the active policy. snap must be
// the state after ev was applied.
func (c *Controller) Observe(ev protocol.Event, snap telemetry.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := c.cur
	if rec == nil {
		return
	}

	if _, ok := ev.(protocol.RawAdcBlock); ok {
		rec.blocks++
	}
	rows := rowsFor(c.cfg.Policy, c.now(), ev, snap, rec.blocks)
	if len(rows) == 0 {
		return
	}

	var err error
	for _, row := range rows {
		if err = rec.w.Write(row); err != nil {
			break
		}
	}
	if err == nil {
		rec.w.Flush()
		err = rec.w.Error()
	}
	if err != nil {
		observability.RecordRecordingWriteError()
		if !rec.writeFailed {
			rec.writeFailed = true
			log.Error().Err(fmt.Errorf("%w: write %s: %w", ErrResource, rec.path, err)).Msg("recording write failed")
		}
		return
	}
	rec.rows += len(rows)
	observability.RecordRecordingRows(len(rows))
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return Status{Policy: c.cfg.Policy}
	}
	return Status{
		Active:   true,
		Path:     c.cur.path,
		Policy:   c.cfg.Policy,
		Deadline: c.cur.deadline,
		Rows:     c.cur.rows,
	}
}

// Done returns a channel closed when the current recording closes. With no
// recording open the channel is already closed.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.cur.done
}
