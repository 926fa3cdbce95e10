package acquire

import (
	"errors"
	"fmt"
)

// ErrInvalidSource is returned for a source other than "local" or "server".
var ErrInvalidSource = errors.New("invalid source")

// Kind classifies an acquisition failure.
type Kind int

const (
	// TempDirFailed means the scratch directory could not be created.
	TempDirFailed Kind = iota
	// WorkDirFailed means the working directory could not be determined.
	WorkDirFailed
	// FetchFailed means the download request failed or was refused.
	FetchFailed
	// CreateFailed means the destination file could not be created.
	CreateFailed
	// CopyFailed means the body could not be streamed to disk.
	CopyFailed
	// LocalFileMissing means a local binary does not exist.
	LocalFileMissing
	// ReadFailed means the application binary could not be read.
	ReadFailed
)

func (k Kind) String() string {
	switch k {
	case TempDirFailed:
		return "temp dir"
	case WorkDirFailed:
		return "work dir"
	case FetchFailed:
		return "fetch"
	case CreateFailed:
		return "create"
	case CopyFailed:
		return "copy"
	case LocalFileMissing:
		return "missing"
	case ReadFailed:
		return "read"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error reports which artifact failed and how.
type Error struct {
	Artifact string // firmware, bootloader or partitions
	Path     string
	Kind     Kind
	Err      error
}

// Reason is the user-facing description of the failure.
func (e *Error) Reason() string {
	switch e.Kind {
	case TempDirFailed:
		return "Couldn't create temp directory"
	case WorkDirFailed:
		return "Couldn't fetch current directory"
	case FetchFailed:
		return fmt.Sprintf("Couldn't fetch %s binary from QTShock servers", e.Artifact)
	case CreateFailed:
		return fmt.Sprintf("Couldn't create file: %s", e.Path)
	case CopyFailed:
		return fmt.Sprintf("Couldn't write binary bytes to file '%s'", e.Path)
	default:
		return fmt.Sprintf("Local binary not found or invalid at '%s'", e.Path)
	}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Reason()
	}
	return fmt.Sprintf("%s: %v", e.Reason(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
