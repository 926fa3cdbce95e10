package protocol

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when no complete frame arrived before the read
// deadline of the underlying port expired.
var ErrTimeout = errors.New("timed out waiting for response")

// ProtocolError represents a failure status returned by the ROM loader.
type ProtocolError struct {
	// Operation is the command that failed
	Operation string

	// Status is the first status byte (non-zero on failure)
	Status byte

	// Code is the ROM error code
	Code byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s failed: %s (0x%02X)", e.Operation, errorName(e.Code), e.Code)
}

// IsProtocolError returns true if err is or wraps a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

func errorName(code byte) string {
	switch code {
	case ErrInvalidMessage:
		return "invalid message"
	case ErrFailedToAct:
		return "failed to act"
	case ErrInvalidCRC:
		return "invalid CRC"
	case ErrFlashWrite:
		return "flash write error"
	case ErrFlashRead:
		return "flash read error"
	case ErrFlashReadLength:
		return "flash read length error"
	case ErrDeflate:
		return "deflate error"
	default:
		return fmt.Sprintf("unknown error code 0x%02X", code)
	}
}
