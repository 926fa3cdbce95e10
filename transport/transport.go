package transport

import (
	"errors"
	"io/fs"
	"sort"
	"syscall"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Enumerator lists the serial ports of the host.
type Enumerator interface {
	Ports() ([]*enumerator.PortDetails, error)
}

// EnumeratorFunc adapts a function to an Enumerator.
type EnumeratorFunc func() ([]*enumerator.PortDetails, error)

// Ports calls f.
func (f EnumeratorFunc) Ports() ([]*enumerator.PortDetails, error) {
	return f()
}

// Opener opens a serial port by name.
type Opener func(name string, mode *serial.Mode) (serial.Port, error)

// Transport resolves and opens endpoints.
type Transport struct {
	enum Enumerator
	open Opener
}

// New returns a Transport. Nil arguments select the go.bug.st/serial
// implementations.
func New(enum Enumerator, open Opener) *Transport {
	if enum == nil {
		enum = EnumeratorFunc(enumerator.GetDetailedPortsList)
	}
	if open == nil {
		open = serial.Open
	}
	return &Transport{enum: enum, open: open}
}

// Default uses the host serial ports.
var Default = New(nil, nil)

// Resolve finds the endpoint with exactly name and checks it is a USB port.
func Resolve(name string) (*Endpoint, error) {
	return Default.Resolve(name)
}

// ListUSB returns the USB endpoints of the host.
func ListUSB() ([]*Endpoint, error) {
	return Default.ListUSB()
}

// Open opens ep at the ROM loader rate.
func Open(ep *Endpoint) (*SerialPort, error) {
	return Default.Open(ep)
}

// List returns every endpoint sorted by name.
func (t *Transport) List() ([]*Endpoint, error) {
	details, err := t.enum.Ports()
	if err != nil {
		return nil, &ResolveError{Kind: EnumerationFailed, Err: err}
	}

	eps := make([]*Endpoint, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		eps = append(eps, endpointFromDetails(d))
	}
	sort.Slice(eps, func(i, j int) bool { return eps[i].Name < eps[j].Name })
	return eps, nil
}

// ListUSB returns the USB endpoints sorted by name.
func (t *Transport) ListUSB() ([]*Endpoint, error) {
	eps, err := t.List()
	if err != nil {
		return nil, err
	}
	usb := eps[:0]
	for _, ep := range eps {
		if ep.Kind == KindUSB {
			usb = append(usb, ep)
		}
	}
	return usb, nil
}

// Resolve finds the endpoint with exactly name and checks it is a USB port.
func (t *Transport) Resolve(name string) (*Endpoint, error) {
	eps, err := t.List()
	if err != nil {
		var re *ResolveError
		if errors.As(err, &re) {
			re.Name = name
		}
		return nil, err
	}

	for _, ep := range eps {
		if ep.Name != name {
			continue
		}
		if ep.Kind != KindUSB {
			return nil, &ResolveError{Kind: NotUSB, Name: name}
		}
		return ep, nil
	}
	return nil, &ResolveError{Kind: NoSuchEndpoint, Name: name}
}

// Open opens ep at 115200 8N1 without flow control.
func (t *Transport) Open(ep *Endpoint) (*SerialPort, error) {
	mode := serialMode(DefaultBaudRate)
	p, err := t.open(ep.Name, mode)
	if err != nil {
		return nil, mapOpenError(ep.Name, err)
	}
	return &SerialPort{Port: p, name: ep.Name, mode: *mode}, nil
}

// mapOpenError classifies serial.PortError codes and the raw errno values
// some platforms return instead.
func mapOpenError(name string, err error) error {
	kind := OpenOther
	var pe *serial.PortError
	switch {
	case errors.As(err, &pe):
		switch pe.Code() {
		case serial.PortBusy:
			kind = OpenBusy
		case serial.PermissionDenied:
			kind = OpenPermissionDenied
		case serial.PortNotFound:
			kind = OpenAbsent
		}
	case errors.Is(err, syscall.EBUSY):
		kind = OpenBusy
	case errors.Is(err, fs.ErrPermission):
		kind = OpenPermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		kind = OpenAbsent
	}
	return &OpenError{Kind: kind, Name: name, Err: err}
}
