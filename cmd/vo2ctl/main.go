package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/vo2ctl/internal/logging"
	"github.com/danmuck/vo2ctl/internal/observability"
	"github.com/danmuck/vo2ctl/internal/session"
	"github.com/danmuck/vo2ctl/internal/transport"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, flags := newFlagSet()
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: vo2ctl [flags] /path/to/port")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	logging.ConfigureRuntime()

	if flags.listPorts {
		ports, err := transport.ListPorts()
		if err != nil {
			log.Error().Err(err).Msg("vo2ctl")
			return 1
		}
		for _, p := range ports {
			fmt.Fprintln(stdout, p)
		}
		return 0
	}

	cfg := defaultAppConfig()
	if flags.configPath != "" {
		if err := loadAppConfig(flags.configPath, &cfg); err != nil {
			log.Error().Err(err).Msg("vo2ctl")
			return 1
		}
	}
	if err := applyFlags(fs, flags, &cfg); err != nil {
		fmt.Fprintf(stderr, "vo2ctl: %v\n", err)
		fs.Usage()
		return 2
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(stderr, "vo2ctl: %v\n", err)
		if errors.Is(err, transport.ErrMissingPort) {
			fs.Usage()
			return 2
		}
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := observability.ServeMetrics(ctx, cfg.MetricsAddr, log.Logger); err != nil {
				log.Warn().Err(err).Msg("vo2ctl metrics server stopped")
			}
		}()
	}

	port, err := transport.Open(cfg.Transport)
	if err != nil {
		fmt.Fprintln(stderr, "Error opening serial port")
		log.Error().Err(err).Msg("vo2ctl")
		return 1
	}

	sess := session.New(cfg.Session, port, stdin, stdout)
	if err := sess.Run(ctx); err != nil {
		log.Error().Err(err).Msg("vo2ctl session failed")
		return 1
	}
	return 0
}
