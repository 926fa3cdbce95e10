package romsim

import (
	"time"

	"go.bug.st/serial"
)

// Serial exposes a Port through serial.Port so it can stand in for a host
// port behind transport.Opener. Methods the loader never calls are left to
// the nil embedded interface.
type Serial struct {
	serial.Port

	sim *Port
}

// NewSerial wraps p.
func NewSerial(p *Port) *Serial {
	return &Serial{sim: p}
}

func (s *Serial) Read(b []byte) (int, error)           { return s.sim.Read(b) }
func (s *Serial) Write(b []byte) (int, error)          { return s.sim.Write(b) }
func (s *Serial) SetMode(m *serial.Mode) error         { return s.sim.SetBaudRate(m.BaudRate) }
func (s *Serial) SetDTR(dtr bool) error                { return s.sim.SetDTR(dtr) }
func (s *Serial) SetRTS(rts bool) error                { return s.sim.SetRTS(rts) }
func (s *Serial) SetReadTimeout(d time.Duration) error { return s.sim.SetReadTimeout(d) }
func (s *Serial) ResetInputBuffer() error              { return s.sim.ResetInputBuffer() }
func (s *Serial) Close() error                         { return s.sim.Close() }
