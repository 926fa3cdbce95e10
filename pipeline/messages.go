package pipeline

import (
	"errors"
	"fmt"
	"html"

	"github.com/qtshock/qtshockd/acquire"
	"github.com/qtshock/qtshockd/firmware"
	"github.com/qtshock/qtshockd/flasher"
	"github.com/qtshock/qtshockd/transport"
)

// MsgSuccess is returned when a run completes.
const MsgSuccess = "<g>Successfully flashed firmware!</g>"

// NoDevicesOption is the listing placeholder when no USB endpoint is found.
const NoDevicesOption = `<option value="NULL" disabled>No devices found</option>`

// Progress checkpoints of a run after acquisition.
const (
	MsgFoundPort     = "<y>Found USB port '%s'!</y>"
	MsgOpenedPort    = "<y>Opened connection on serial port '%s'!</y>"
	MsgConnecting    = "<bl>Connecting to QTShock flash...</bl>"
	MsgConnected     = "<y>Set up flasher!</y>"
	MsgErasing       = "<bl>Erasing existing flash...</bl>"
	MsgErased        = "<y>Erased existing flash!</y>"
	MsgFlashData     = "<y>Set up flash data!</y>"
	MsgCrystal       = "<y>Got crystal frequency!</y>"
	msgFailedPrefix  = "<r>Failed to flash firmware! ("
	msgFailedSuffix  = ")</r>"
	reasonPortInUse  = "Couldn't open serial port '%s'. Is it already in use?"
	reasonPortDenied = "Couldn't open serial port '%s'. Permission denied"
	reasonPortOpen   = "Couldn't open serial port '%s'"
	reasonFlashData  = "Bad flash data"
	reasonCrystal    = "Couldn't fetch crystal frequency"
	reasonProgram    = "Flashing FAILED"
	reasonEnumerate  = "Couldn't list serial ports"
	reasonBadSource  = "Invalid source"
	reasonNoSuchPort = "Port '%s' doesn't exist"
	reasonNotUSB     = "Invalid port '%s'"
)

// Failed wraps reason in the failure markup.
func Failed(reason string) string {
	return msgFailedPrefix + reason + msgFailedSuffix
}

// Message converts a run error into the message shown to the user. A nil
// error is success.
func Message(err error) string {
	if err == nil {
		return MsgSuccess
	}
	return Failed(Reason(err))
}

// Reason describes err without markup.
func Reason(err error) string {
	var (
		acqErr     *acquire.Error
		resolveErr *transport.ResolveError
		openErr    *transport.OpenError
		dataErr    *firmware.FlashDataError
		clockErr   *flasher.ClockError
		progErr    *flasher.ProgramError
		busyErr    *busyError
	)

	switch {
	case errors.Is(err, acquire.ErrInvalidSource):
		return reasonBadSource
	case errors.As(err, &acqErr):
		return acqErr.Reason()
	case errors.As(err, &resolveErr):
		switch resolveErr.Kind {
		case transport.NoSuchEndpoint:
			return fmt.Sprintf(reasonNoSuchPort, resolveErr.Name)
		case transport.NotUSB:
			return fmt.Sprintf(reasonNotUSB, resolveErr.Name)
		default:
			return reasonEnumerate
		}
	case errors.As(err, &busyErr):
		return fmt.Sprintf(reasonPortInUse, busyErr.endpoint)
	case errors.As(err, &openErr):
		switch openErr.Kind {
		case transport.OpenBusy:
			return fmt.Sprintf(reasonPortInUse, openErr.Name)
		case transport.OpenPermissionDenied:
			return fmt.Sprintf(reasonPortDenied, openErr.Name)
		case transport.OpenAbsent:
			return fmt.Sprintf(reasonNoSuchPort, openErr.Name)
		default:
			return fmt.Sprintf(reasonPortOpen+": %v", openErr.Name, openErr.Err)
		}
	case errors.As(err, &dataErr):
		return reasonFlashData
	case errors.As(err, &clockErr):
		return reasonCrystal
	case errors.As(err, &progErr):
		return reasonProgram + ": " + progErr.Error()
	default:
		return err.Error()
	}
}

// busyError reports a run refused because the endpoint is already being
// flashed by this process.
type busyError struct {
	endpoint string
	runID    string
}

func (e *busyError) Error() string {
	return fmt.Sprintf("endpoint %s is in use by run %s", e.endpoint, e.runID)
}

func (e *busyError) Is(target error) bool {
	return target == transport.ErrPortBusy
}

// Options renders endpoints as <option> markup, or the placeholder when
// there are none.
func Options(endpoints []*transport.Endpoint) string {
	if len(endpoints) == 0 {
		return NoDevicesOption
	}
	var out []byte
	for _, ep := range endpoints {
		name := html.EscapeString(ep.Name)
		out = fmt.Appendf(out, `<option value="%s">%s</option>`, name, name)
	}
	return string(out)
}
