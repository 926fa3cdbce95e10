package transport

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by errors.Is against *ResolveError and *OpenError.
var (
	ErrNoSuchEndpoint    = errors.New("no such endpoint")
	ErrNotUSB            = errors.New("endpoint is not a USB port")
	ErrEnumerationFailed = errors.New("port enumeration failed")

	ErrPortBusy         = errors.New("port is busy")
	ErrPermissionDenied = errors.New("permission denied")
	ErrPortAbsent       = errors.New("port is absent")
)

// ResolveKind classifies a ResolveError.
type ResolveKind int

const (
	NoSuchEndpoint ResolveKind = iota
	NotUSB
	EnumerationFailed
)

// ResolveError indicates that a name could not be resolved to a USB
// endpoint.
type ResolveError struct {
	Kind ResolveKind
	Name string
	Err  error
}

func (e *ResolveError) Error() string {
	switch e.Kind {
	case NoSuchEndpoint:
		return fmt.Sprintf("port '%s' doesn't exist", e.Name)
	case NotUSB:
		return fmt.Sprintf("port '%s' is not a USB port", e.Name)
	default:
		return fmt.Sprintf("enumerate ports: %v", e.Err)
	}
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error kind.
func (e *ResolveError) Is(target error) bool {
	switch e.Kind {
	case NoSuchEndpoint:
		return target == ErrNoSuchEndpoint
	case NotUSB:
		return target == ErrNotUSB
	default:
		return target == ErrEnumerationFailed
	}
}

// OpenKind classifies an OpenError.
type OpenKind int

const (
	OpenOther OpenKind = iota
	OpenBusy
	OpenPermissionDenied
	OpenAbsent
)

// OpenError indicates that an endpoint could not be opened.
type OpenError struct {
	Kind OpenKind
	Name string
	Err  error
}

func (e *OpenError) Error() string {
	switch e.Kind {
	case OpenBusy:
		return fmt.Sprintf("open '%s': port is busy", e.Name)
	case OpenPermissionDenied:
		return fmt.Sprintf("open '%s': permission denied", e.Name)
	case OpenAbsent:
		return fmt.Sprintf("open '%s': port is absent", e.Name)
	default:
		return fmt.Sprintf("open '%s': %v", e.Name, e.Err)
	}
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error kind.
func (e *OpenError) Is(target error) bool {
	switch e.Kind {
	case OpenBusy:
		return target == ErrPortBusy
	case OpenPermissionDenied:
		return target == ErrPermissionDenied
	case OpenAbsent:
		return target == ErrPortAbsent
	default:
		return false
	}
}
