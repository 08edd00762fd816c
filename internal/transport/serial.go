// Package transport opens the byte stream to the device.
package transport

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const DefaultBaudRate = 115200

var (
	ErrOpen        = errors.New("transport: failed to open port")
	ErrMissingPort = errors.New("transport: missing port path")
)

type Config struct {
	PortPath string
	BaudRate int
}

func DefaultConfig() Config {
	return Config{BaudRate: DefaultBaudRate}
}

// Mode returns the 8N1 line settings for cfg.
func (c Config) Mode() *serial.Mode {
	baud := c.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Open opens the serial port. Reads block until data arrives; the session
// unblocks them by closing the port.
func Open(cfg Config) (io.ReadWriteCloser, error) {
	path := strings.TrimSpace(cfg.PortPath)
	if path == "" {
		return nil, ErrMissingPort
	}
	mode := cfg.Mode()
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}
	log.Info().Str("port", path).Int("baud", mode.BaudRate).Msg("transport opened")
	return port, nil
}

// ListPorts returns the serial ports visible to the host.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("transport: list ports: %w", err)
	}
	return ports, nil
}
