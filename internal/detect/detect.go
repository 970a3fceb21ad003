// Package detect finds a target printing bootloader debug lines on one of the
// host's serial ports.
package detect

import (
	"fmt"
	"strings"
	"time"

	"github.com/bigbag/audioboot/internal/monitor"
	"github.com/bigbag/audioboot/internal/serial"
)

// DefaultWindow is how long a port is listened to after reset.
const DefaultWindow = 1500 * time.Millisecond

// Result represents a detected target.
type Result struct {
	Port   string
	Banner string
}

// Options controls how a port is probed.
type Options struct {
	BaudRate int
	Window   time.Duration
	Reset    bool
}

// DetectDevice returns the first port whose output looks like the bootloader.
func DetectDevice(opts Options) (*Result, error) {
	ports, err := serial.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	if len(ports) == 0 {
		return nil, fmt.Errorf("no serial ports found")
	}

	var lastErr error
	for _, portName := range ports {
		result, err := tryPort(portName, opts)
		if err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("no bootloader found (last error: %w)", lastErr)
	}
	return nil, fmt.Errorf("no bootloader found")
}

// DetectOnPort probes a specific port.
func DetectOnPort(portName string, opts Options) (*Result, error) {
	return tryPort(portName, opts)
}

// Identify returns the first line of out that parses as a bootloader
// debug event.
func Identify(out []byte) (string, bool) {
	for _, line := range strings.Split(string(out), "\n") {
		e := monitor.ParseLine(line)
		if e.Kind != monitor.Unknown {
			return e.Line, true
		}
	}
	return "", false
}

func tryPort(portName string, opts Options) (*Result, error) {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}

	port, err := serial.Open(portName, opts.BaudRate)
	if err != nil {
		return nil, err
	}
	defer port.Close()

	if opts.Reset {
		if err := port.ResetTarget(); err != nil {
			return nil, fmt.Errorf("failed to reset: %w", err)
		}
	}

	out, err := port.ReadAll(opts.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to read from %s: %w", portName, err)
	}

	banner, ok := Identify(out)
	if !ok {
		return nil, fmt.Errorf("no bootloader output on %s", portName)
	}

	return &Result{
		Port:   portName,
		Banner: banner,
	}, nil
}
