// Package serial opens the robot's USB CDC port on the host.
package serial

import (
	"errors"
	"fmt"
	"time"

	"github.com/tarm/serial"
)

var ErrNoDevice = errors.New("serial: no device given")

// Config describes the port. USB CDC ignores the baud rate, but the
// driver still wants one.
type Config struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration // 0 blocks; the monitor needs a timeout to stop its reader
}

// DefaultConfig returns the configuration for a robot on device
func DefaultConfig(device string) Config {
	return Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Port is an open robot link
type Port struct {
	*serial.Port
	device string
}

// Open opens the device and drops anything the robot sent before the host
// was listening
func Open(cfg Config) (*Port, error) {
	if cfg.Device == "" {
		return nil, ErrNoDevice
	}

	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Device, err)
	}
	if err := p.Flush(); err != nil {
		p.Close()
		return nil, fmt.Errorf("serial: flush %s: %w", cfg.Device, err)
	}
	return &Port{Port: p, device: cfg.Device}, nil
}

// Device returns the path the port was opened on
func (p *Port) Device() string {
	return p.device
}
