// Package flasher programs an ESP32 through its ROM serial loader.
//
// # Session Lifecycle
//
// A Session moves through these states:
//
//	connecting -> connected -> erasing -> erased -> programming -> done
//	                  any non-terminal state -> failed
//
// Writes are refused until the flash has been erased, and Close only
// hard-resets the chip into the new application once the session is done.
//
// # Usage
//
//	s, err := flasher.Connect(ctx, port, usb,
//	    flasher.WithLogger(logger),
//	    flasher.WithTimeout(5*time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	if err := s.EraseFlash(ctx); err != nil {
//	    return err
//	}
//	xtal, err := s.CrystalFrequency(ctx)
//	if err != nil {
//	    return err
//	}
//	err = s.LoadElfToFlash(ctx, elfData, flashData, callbacks, xtal)
//
// # Reset Strategies
//
// Boards with a USB-UART bridge use the classic DTR/RTS auto-reset circuit.
// Chips exposing the Espressif USB-JTAG-Serial peripheral (VID 0x303A,
// PID 0x1001) need a different line sequence; Connect picks the strategy
// from the USBInfo it is given.
//
// # Error Handling
//
// Every failure is typed so callers can tell the stages apart:
//   - *ConnectError for the handshake (wrapping *UnsupportedChipError for a wrong chip)
//   - *EraseError for the flash erase
//   - *ClockError for the crystal query
//   - *ProgramError for image building and writing
//   - *StateError for an operation out of order
//
// ROM failures are wrapped *protocol.ProtocolError values and keep the ROM
// error code in their message.
package flasher
