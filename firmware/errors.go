package firmware

import "fmt"

// FlashDataError reports a bootloader or partition table that could not be
// read or validated.
type FlashDataError struct {
	// Artifact is "bootloader", "partitions" or "application"
	Artifact string

	// Path is the file the artifact was read from, if any
	Path string

	Err error
}

func (e *FlashDataError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("bad %s: %v", e.Artifact, e.Err)
	}
	return fmt.Sprintf("bad %s '%s': %v", e.Artifact, e.Path, e.Err)
}

func (e *FlashDataError) Unwrap() error {
	return e.Err
}
