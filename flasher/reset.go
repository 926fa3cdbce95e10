package flasher

import (
	"context"
	"time"
)

// ResetStrategy drives the DTR/RTS lines to reboot the chip into the ROM
// loader.
type ResetStrategy interface {
	Name() string
	Reset(ctx context.Context, port Port, unit time.Duration) error
}

// ClassicReset toggles EN and IO0 through the auto-reset transistors of a
// USB-UART bridge.
type ClassicReset struct{}

func (ClassicReset) Name() string { return "classic" }

// Reset pulls EN low with IO0 high, then releases EN with IO0 low so the
// chip samples the download strapping.
func (ClassicReset) Reset(ctx context.Context, port Port, unit time.Duration) error {
	return runLines(ctx, port, []lineStep{
		{dtr: false, rts: true, wait: 2 * unit},
		{dtr: true, rts: false, wait: unit},
		{dtr: false, rts: false},
	})
}

// USBJTAGSerialReset drives the reset logic of the built-in USB-JTAG-Serial
// peripheral, which latches IO0 when reset asserts.
type USBJTAGSerialReset struct{}

func (USBJTAGSerialReset) Name() string { return "usb-jtag-serial" }

// Reset asserts reset while IO0 is held, passing through (1,1) rather than
// (0,0) so the peripheral never sees a plain reset.
func (USBJTAGSerialReset) Reset(ctx context.Context, port Port, unit time.Duration) error {
	return runLines(ctx, port, []lineStep{
		{dtr: false, rts: false, wait: 2 * unit},
		{dtr: true, rts: false, wait: 2 * unit},
		{dtr: true, rts: true, rtsFirst: true},
		{dtr: false, rts: true, wait: 2 * unit},
		{dtr: false, rts: false},
	})
}

// hardReset pulses EN so the chip boots the freshly written application.
func hardReset(ctx context.Context, port Port, unit time.Duration) error {
	return runLines(ctx, port, []lineStep{
		{dtr: false, rts: true, rtsFirst: true, wait: 2 * unit},
		{dtr: false, rts: false, rtsFirst: true},
	})
}

// resetStrategy picks the reset sequence for the USB bridge.
func resetStrategy(usb *USBInfo) ResetStrategy {
	if usb.IsUSBJTAGSerial() {
		return USBJTAGSerialReset{}
	}
	return ClassicReset{}
}

type lineStep struct {
	dtr, rts bool
	rtsFirst bool
	wait     time.Duration
}

func runLines(ctx context.Context, port Port, steps []lineStep) error {
	for _, st := range steps {
		var err error
		if st.rtsFirst {
			if err = port.SetRTS(st.rts); err == nil {
				err = port.SetDTR(st.dtr)
			}
		} else {
			if err = port.SetDTR(st.dtr); err == nil {
				err = port.SetRTS(st.rts)
			}
		}
		if err != nil {
			return err
		}
		if err := sleep(ctx, st.wait); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
