package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/danmuck/vo2ctl/internal/command"
	"github.com/danmuck/vo2ctl/internal/observability"
	"github.com/danmuck/vo2ctl/internal/protocol"
	"github.com/danmuck/vo2ctl/internal/protocol/frame"
	"github.com/danmuck/vo2ctl/internal/recording"
	"github.com/danmuck/vo2ctl/internal/telemetry"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var errQuit = errors.New("session: quit requested")

// Session wires the transport, telemetry state, recording controller and
// command dispatcher for one device connection.
type Session struct {
	cfg        Config
	port       io.ReadWriteCloser
	input      io.Reader
	out        io.Writer
	state      *telemetry.State
	rec        *recording.Controller
	dispatcher *command.Dispatcher

	closing      atomic.Bool
	shutdownOnce sync.Once
}

func New(cfg Config, port io.ReadWriteCloser, input io.Reader, out io.Writer, opts ...recording.Option) *Session {
	state := telemetry.NewState()
	rec := recording.NewController(cfg.Recording, opts...)
	return &Session{
		cfg:        cfg,
		port:       port,
		input:      input,
		out:        out,
		state:      state,
		rec:        rec,
		dispatcher: command.NewDispatcher(state, rec, out, rec.Config().Duration),
	}
}

func (s *Session) State() *telemetry.State {
	return s.state
}

func (s *Session) Recorder() *recording.Controller {
	return s.rec
}

// Run blocks until the user quits, input ends, ctx is cancelled or a fatal
// transport/framing error occurs. Only the latter is returned. The transport
// is closed when Run returns. The caller owns input and must close it; the
// line reader stays blocked on it until then.
func (s *Session) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	lines := make(chan string)

	go s.pumpLines(gctx, lines)
	g.Go(s.decodeLoop)
	g.Go(func() error {
		return s.commandLoop(gctx, lines)
	})
	g.Go(func() error {
		<-gctx.Done()
		s.shutdown()
		return nil
	})

	err := g.Wait()
	s.shutdown()
	if err == nil || errors.Is(err, errQuit) {
		log.Info().Msg("session closed")
		return nil
	}
	return err
}

func (s *Session) decodeLoop() error {
	dec := protocol.NewDecoder(s.port, s.cfg.Limits)
	for {
		ev, err := dec.Next()
		if err != nil {
			if s.closing.Load() {
				return nil
			}
			if errors.Is(err, protocol.ErrFraming) {
				observability.RecordFramingError()
			}
			return fmt.Errorf("session decode: %w", err)
		}
		observability.RecordFrameDecoded(ev.Tag().String())
		s.state.Apply(ev)
		s.rec.Observe(ev, s.state.Snapshot())
	}
}

func (s *Session) commandLoop(ctx context.Context, lines <-chan string) error {
	for {
		fmt.Fprint(s.out, s.cfg.Prompt)

		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				s.rec.Stop(recording.ReasonQuit)
				return errQuit
			}
			line = l
		}
		if s.closing.Load() {
			return nil
		}

		outcome, err := s.dispatcher.Dispatch(line)
		if err != nil {
			s.report(err)
			continue
		}
		if outcome.Frame != nil {
			if err := s.send(outcome.Frame); err != nil {
				if errors.Is(err, frame.ErrFrameLength) {
					log.Error().Err(err).Msg("session.commandLoop refused malformed frame")
					fmt.Fprintf(s.out, "[error] command packet length is %d bytes\n", len(outcome.Frame))
					continue
				}
				if s.closing.Load() {
					return nil
				}
				return fmt.Errorf("session send: %w", err)
			}
		}
		if outcome.Quit {
			return errQuit
		}
	}
}

func (s *Session) send(b []byte) error {
	if err := frame.Write(s.port, b); err != nil {
		return err
	}
	tag := protocol.Tag(b[0])
	observability.RecordFrameSent(tag.String())
	log.Debug().Str("tag", tag.String()).Hex("frame", b).Msg("session.send")
	return nil
}

func (s *Session) report(err error) {
	switch {
	case errors.Is(err, command.ErrInvalidCommand):
		log.Debug().Err(err).Msg("session.commandLoop invalid command")
	case errors.Is(err, command.ErrUsage):
		fmt.Fprintf(s.out, "[error] %v\n", err)
	case errors.Is(err, recording.ErrResource):
		log.Warn().Err(err).Msg("session.commandLoop record failed")
		fmt.Fprintf(s.out, "[error] %v\n", err)
	default:
		log.Error().Err(err).Msg("session.commandLoop dispatch failed")
		fmt.Fprintf(s.out, "[error] %v\n", err)
	}
}

// pumpLines feeds input lines to the command task so that a blocked read
// does not hold up shutdown. It closes lines when input ends.
func (s *Session) pumpLines(ctx context.Context, lines chan<- string) {
	defer close(lines)
	sc := bufio.NewScanner(s.input)
	for sc.Scan() {
		select {
		case lines <- sc.Text():
		case <-ctx.Done():
			return
		}
	}
	if err := sc.Err(); err != nil {
		log.Warn().Err(err).Msg("session.pumpLines input failed")
	}
}

// shutdown closes any open recording and releases the transport. Read errors
// caused by the close are expected and suppressed through closing.
func (s *Session) shutdown() {
	s.shutdownOnce.Do(func() {
		s.closing.Store(true)
		s.rec.Stop(recording.ReasonShutdown)
		if err := s.port.Close(); err != nil {
			log.Warn().Err(err).Msg("session.shutdown transport close failed")
		}
	})
}
