package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/vo2ctl/internal/recording"
	"github.com/danmuck/vo2ctl/internal/session"
	"github.com/danmuck/vo2ctl/internal/transport"
	"github.com/spf13/pflag"
)

type fileConfig struct {
	Port           string `toml:"port"`
	Baud           int    `toml:"baud"`
	RecordDuration string `toml:"record_duration"`
	RecordPolicy   string `toml:"record_policy"`
	MaxBlockBytes  int64  `toml:"max_block_bytes"`
	MetricsAddr    string `toml:"metrics_addr"`
	Prompt         string `toml:"prompt"`
}

type appConfig struct {
	Transport   transport.Config
	Session     session.Config
	MetricsAddr string
}

func defaultAppConfig() appConfig {
	return appConfig{
		Transport: transport.DefaultConfig(),
		Session:   session.DefaultConfig(),
	}
}

// loadAppConfig applies the keys present in the TOML file at path on top of
// cfg.
func loadAppConfig(path string, cfg *appConfig) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load vo2ctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load vo2ctl config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("port") {
		cfg.Transport.PortPath = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		cfg.Transport.BaudRate = raw.Baud
	}
	if meta.IsDefined("record_duration") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.RecordDuration))
		if err != nil {
			return fmt.Errorf("parse record_duration: %w", err)
		}
		cfg.Session.Recording.Duration = d
	}
	if meta.IsDefined("record_policy") {
		p, err := recording.ParsePolicy(raw.RecordPolicy)
		if err != nil {
			return err
		}
		cfg.Session.Recording.Policy = p
	}
	if meta.IsDefined("max_block_bytes") {
		if raw.MaxBlockBytes <= 0 || raw.MaxBlockBytes > int64(^uint32(0)) {
			return fmt.Errorf("max_block_bytes out of range: %d", raw.MaxBlockBytes)
		}
		cfg.Session.Limits.MaxBlockBytes = uint32(raw.MaxBlockBytes)
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("prompt") {
		cfg.Session.Prompt = raw.Prompt
	}
	return nil
}

type cliFlags struct {
	configPath     string
	baud           int
	recordDuration time.Duration
	recordPolicy   string
	metricsAddr    string
	listPorts      bool
}

func newFlagSet() (*pflag.FlagSet, *cliFlags) {
	f := &cliFlags{}
	fs := pflag.NewFlagSet("vo2ctl", pflag.ContinueOnError)
	fs.StringVarP(&f.configPath, "config", "c", "", "path to a TOML config file")
	fs.IntVarP(&f.baud, "baud", "b", transport.DefaultBaudRate, "serial baud rate")
	fs.DurationVar(&f.recordDuration, "record-duration", recording.DefaultDuration, "how long a record command captures data")
	fs.StringVar(&f.recordPolicy, "record-policy", string(recording.PolicyTelemetry), "what record captures: telemetry or samples")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	fs.BoolVar(&f.listPorts, "list-ports", false, "list serial ports and exit")
	return fs, f
}

// applyFlags overlays explicitly set flags and the positional port on cfg.
func applyFlags(fs *pflag.FlagSet, f *cliFlags, cfg *appConfig) error {
	if fs.NArg() > 1 {
		return fmt.Errorf("expected one port argument, got %d", fs.NArg())
	}
	if fs.NArg() == 1 {
		cfg.Transport.PortPath = strings.TrimSpace(fs.Arg(0))
	}
	if fs.Changed("baud") {
		cfg.Transport.BaudRate = f.baud
	}
	if fs.Changed("record-duration") {
		cfg.Session.Recording.Duration = f.recordDuration
	}
	if fs.Changed("record-policy") {
		p, err := recording.ParsePolicy(f.recordPolicy)
		if err != nil {
			return err
		}
		cfg.Session.Recording.Policy = p
	}
	if fs.Changed("metrics-addr") {
		cfg.MetricsAddr = strings.TrimSpace(f.metricsAddr)
	}
	return nil
}

func (c appConfig) validate() error {
	if c.Transport.PortPath == "" {
		return transport.ErrMissingPort
	}
	if c.Transport.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate: %d", c.Transport.BaudRate)
	}
	return c.Session.Recording.Validate()
}
