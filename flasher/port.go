package flasher

import (
	"io"
	"time"
)

// Port is the serial connection to the chip. transport.SerialPort
// implements it over go.bug.st/serial.
type Port interface {
	io.ReadWriter

	// SetBaudRate changes the UART rate of the host side
	SetBaudRate(baud int) error

	// SetDTR drives DTR, wired to IO0 on ESP32 dev boards
	SetDTR(dtr bool) error

	// SetRTS drives RTS, wired to EN on ESP32 dev boards
	SetRTS(rts bool) error

	// SetReadTimeout bounds how long Read blocks when no data arrives
	SetReadTimeout(t time.Duration) error

	// ResetInputBuffer discards unread input
	ResetInputBuffer() error

	Close() error
}

// USBInfo identifies the USB bridge of the port. It selects the reset
// strategy used to enter the ROM loader.
type USBInfo struct {
	VendorID  uint16
	ProductID uint16
}

// Espressif USB-JTAG-Serial peripheral IDs.
const (
	EspressifVID     = 0x303A
	USBJTAGSerialPID = 0x1001
)

// IsUSBJTAGSerial reports whether the port is the built-in USB-JTAG-Serial
// peripheral rather than an external USB-UART bridge.
func (u *USBInfo) IsUSBJTAGSerial() bool {
	return u != nil && u.VendorID == EspressifVID && u.ProductID == USBJTAGSerialPID
}
