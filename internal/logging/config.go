package logging

import (
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel     = "VO2CTL_LOG_LEVEL"
	EnvLogTimestamp = "VO2CTL_LOG_TIMESTAMP"
	EnvLogNoColor   = "VO2CTL_LOG_NOCOLOR"
	EnvLogBypass    = "VO2CTL_LOG_BYPASS"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config is the resolved logger setup for one profile.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	// Bypass drops the console formatter and writes raw JSON lines.
	Bypass bool
	Out    io.Writer
}

var configureOnce sync.Once

func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

func Configure(profile Profile) {
	configureOnce.Do(func() {
		cfg := defaultConfig(profile)
		rejected := applyEnvOverrides(&cfg, os.LookupEnv)
		log.Logger = NewLogger(cfg)
		zerolog.SetGlobalLevel(cfg.Level)
		for _, name := range rejected {
			log.Warn().Str("env", name).Msg("logging: ignoring invalid value")
		}
	})
}

// NewLogger builds a zerolog logger from cfg without touching global state.
func NewLogger(cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	if !cfg.Bypass {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
			PartsExclude: func() []string {
				if cfg.Timestamp {
					return nil
				}
				return []string{zerolog.TimestampFieldName}
			}(),
		}
	}
	ctx := zerolog.New(out).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

func defaultConfig(profile Profile) Config {
	cfg := Config{Out: os.Stderr}
	switch profile {
	case ProfileTest:
		cfg.Level = zerolog.DebugLevel
		cfg.Timestamp = false
	default:
		cfg.Level = zerolog.InfoLevel
		cfg.Timestamp = true
	}
	return cfg
}

// levelAliases maps spellings zerolog.ParseLevel does not know.
var levelAliases = map[string]zerolog.Level{
	"warning":     zerolog.WarnLevel,
	"diagnostics": zerolog.TraceLevel,
	"off":         zerolog.Disabled,
	"none":        zerolog.Disabled,
}

// applyEnvOverrides folds VO2CTL_LOG_* values from lookup into cfg and
// returns the names of variables that were set but unparseable.
func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) []string {
	var rejected []string
	if raw, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(raw) != "" {
		if lvl, ok := parseLevel(raw); ok {
			cfg.Level = lvl
		} else {
			rejected = append(rejected, EnvLogLevel)
		}
	}
	for name, dst := range map[string]*bool{
		EnvLogTimestamp: &cfg.Timestamp,
		EnvLogNoColor:   &cfg.NoColor,
		EnvLogBypass:    &cfg.Bypass,
	} {
		raw, ok := lookup(name)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			rejected = append(rejected, name)
			continue
		}
		*dst = v
	}
	sort.Strings(rejected)
	return rejected
}

func parseLevel(raw string) (zerolog.Level, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if lvl, ok := levelAliases[raw]; ok {
		return lvl, true
	}
	if raw == "" {
		return zerolog.InfoLevel, false
	}
	lvl, err := zerolog.ParseLevel(raw)
	if err != nil {
		return zerolog.InfoLevel, false
	}
	return lvl, true
}
