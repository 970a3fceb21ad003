package serial

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultReadTimeout bounds every Read so callers can check for
// cancellation between reads.
const DefaultReadTimeout = 100 * time.Millisecond

// Port wraps the serial port carrying the target's debug output.
type Port struct {
	port     serial.Port
	portName string
	baudRate int
}

// Open opens a serial port with the specified baud rate.
func Open(portName string, baudRate int) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", portName, err)
	}

	// Set read timeout
	if err := port.SetReadTimeout(DefaultReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &Port{
		port:     port,
		portName: portName,
		baudRate: baudRate,
	}, nil
}

// Close closes the serial port.
func (p *Port) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Read reads data from the serial port. It returns 0, nil when the read
// timeout elapses without data.
func (p *Port) Read(buf []byte) (int, error) {
	return p.port.Read(buf)
}

// ReadAll reads everything that arrives within timeout.
func (p *Port) ReadAll(timeout time.Duration) ([]byte, error) {
	var result []byte
	buf := make([]byte, 1024)
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		n, err := p.port.Read(buf)
		if n > 0 {
			result = append(result, buf[:n]...)
		}
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

// Flush discards any buffered data.
func (p *Port) Flush() error {
	return p.port.ResetInputBuffer()
}

// ResetTarget pulses DTR the way the Arduino auto-reset circuit expects,
// restarting the target into its bootloader.
func (p *Port) ResetTarget() error {
	if err := p.port.SetDTR(false); err != nil {
		return err
	}
	if err := p.port.SetRTS(false); err != nil {
		return err
	}
	time.Sleep(250 * time.Millisecond)

	if err := p.port.SetDTR(true); err != nil {
		return err
	}
	if err := p.port.SetRTS(true); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)

	// Drop whatever the reset glitch produced.
	return p.Flush()
}

// PortName returns the port name.
func (p *Port) PortName() string {
	return p.portName
}

// BaudRate returns the current baud rate.
func (p *Port) BaudRate() int {
	return p.baudRate
}

// ListPorts returns a list of available serial ports.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	return ports, nil
}
