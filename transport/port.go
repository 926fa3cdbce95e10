package transport

import (
	"go.bug.st/serial"
)

// DefaultBaudRate is the rate ports are opened at.
const DefaultBaudRate = 115200

func serialMode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// SerialPort is an open serial port. It implements flasher.Port.
type SerialPort struct {
	serial.Port

	name string
	mode serial.Mode
}

// Name returns the endpoint name the port was opened from.
func (p *SerialPort) Name() string {
	return p.name
}

// SetBaudRate reconfigures the port, keeping 8N1.
func (p *SerialPort) SetBaudRate(baud int) error {
	mode := serialMode(baud)
	if err := p.Port.SetMode(mode); err != nil {
		return err
	}
	p.mode = *mode
	return nil
}

// BaudRate returns the configured rate.
func (p *SerialPort) BaudRate() int {
	return p.mode.BaudRate
}
