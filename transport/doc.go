// Package transport discovers and opens the USB serial endpoint of a
// QTShock device.
//
// Endpoints are enumerated through go.bug.st/serial/enumerator and opened
// with go.bug.st/serial at 115200 8N1 without flow control. OS failures are
// mapped onto *ResolveError and *OpenError so callers can tell a missing
// device from a busy one.
//
//	ep, err := transport.Resolve("COM5")
//	if err != nil {
//	    return err
//	}
//	port, err := transport.Open(ep)
//	if errors.Is(err, transport.ErrPortBusy) {
//	    // another program holds the port
//	}
package transport
