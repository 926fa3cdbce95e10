package flasher

import (
	"errors"
	"fmt"

	"github.com/qtshock/qtshockd/protocol"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session is closed")

// ConnectError indicates that the ROM loader handshake failed.
type ConnectError struct {
	// Stage is the handshake step that failed
	Stage string

	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect failed during %s: %v", e.Stage, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// UnsupportedChipError indicates that the connected chip is not an ESP32.
type UnsupportedChipError struct {
	Chip  protocol.ChipType
	Magic uint32
}

func (e *UnsupportedChipError) Error() string {
	return fmt.Sprintf("unsupported chip %s (magic 0x%08X), expected ESP32", e.Chip, e.Magic)
}

// EraseError indicates that erasing the flash failed.
type EraseError struct {
	Err error
}

func (e *EraseError) Error() string {
	return fmt.Sprintf("erase flash: %v", e.Err)
}

func (e *EraseError) Unwrap() error {
	return e.Err
}

// ClockError indicates that the crystal frequency could not be determined.
type ClockError struct {
	Err error
}

func (e *ClockError) Error() string {
	return fmt.Sprintf("crystal frequency: %v", e.Err)
}

func (e *ClockError) Unwrap() error {
	return e.Err
}

// ProgramError indicates that building or writing an image failed.
type ProgramError struct {
	// Image is the name of the image being written, empty while building
	Image string

	// Offset is the flash address of the image
	Offset uint32

	Err error
}

func (e *ProgramError) Error() string {
	if e.Image == "" {
		return fmt.Sprintf("program: %v", e.Err)
	}
	return fmt.Sprintf("program %s at 0x%X: %v", e.Image, e.Offset, e.Err)
}

func (e *ProgramError) Unwrap() error {
	return e.Err
}

// StateError indicates an operation invoked in the wrong session state.
type StateError struct {
	Operation string
	State     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s in state %s", e.Operation, e.State)
}
