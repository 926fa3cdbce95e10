package transport

import (
	"fmt"
	"strconv"

	"go.bug.st/serial/enumerator"
)

// Kind classifies an endpoint.
type Kind int

const (
	// KindOther is a serial port not backed by USB
	KindOther Kind = iota

	// KindUSB is a USB serial port
	KindUSB
)

func (k Kind) String() string {
	if k == KindUSB {
		return "usb"
	}
	return "other"
}

// USBDescriptor holds the USB identity of an endpoint.
type USBDescriptor struct {
	VendorID     uint16
	ProductID    uint16
	SerialNumber string
	Product      string
}

// Endpoint is an enumerated serial port.
type Endpoint struct {
	Name string
	Kind Kind

	// USB is set when Kind is KindUSB
	USB *USBDescriptor
}

func (e *Endpoint) String() string {
	if e.USB == nil {
		return fmt.Sprintf("%s (%s)", e.Name, e.Kind)
	}
	return fmt.Sprintf("%s (usb %04X:%04X)", e.Name, e.USB.VendorID, e.USB.ProductID)
}

// endpointFromDetails converts enumerator output. VID and PID arrive as hex
// strings; unparsable values are kept as zero.
func endpointFromDetails(d *enumerator.PortDetails) *Endpoint {
	ep := &Endpoint{Name: d.Name, Kind: KindOther}
	if !d.IsUSB {
		return ep
	}
	ep.Kind = KindUSB
	ep.USB = &USBDescriptor{
		VendorID:     parseHexID(d.VID),
		ProductID:    parseHexID(d.PID),
		SerialNumber: d.SerialNumber,
		Product:      d.Product,
	}
	return ep
}

func parseHexID(s string) uint16 {
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}
