package firmware

import (
	"crypto/sha256"
	"fmt"
)

// BootloaderOffset is the flash address of the second stage bootloader on
// the ESP32.
const BootloaderOffset = 0x1000

// PatchBootloader returns a copy of the bootloader image with its header
// rewritten to settings. When the image carries a SHA-256 digest it is
// recomputed over the patched bytes.
func PatchBootloader(img []byte, settings FlashSettings) ([]byte, error) {
	end, hashed, err := imageLength(img)
	if err != nil {
		return nil, fmt.Errorf("invalid bootloader image: %w", err)
	}

	// The bootloader is flashed before the crystal is known; its header
	// encoding does not depend on it.
	mode, sizeFreq, err := settings.headerBytes(Xtal40MHz)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(img))
	copy(out, img)
	out[2] = mode
	out[3] = sizeFreq

	if hashed {
		digest := sha256.Sum256(out[:end])
		copy(out[end:], digest[:])
	}
	return out, nil
}
