package session

import (
	"github.com/danmuck/vo2ctl/internal/protocol/frame"
	"github.com/danmuck/vo2ctl/internal/recording"
)

// Config defines session runtime defaults.
type Config struct {
	Limits    frame.Limits
	Recording recording.Config
	Prompt    string
}

func DefaultConfig() Config {
	return Config{
		Limits:    frame.DefaultLimits(),
		Recording: recording.DefaultConfig(),
		Prompt:    "-> ",
	}
}
