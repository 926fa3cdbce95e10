package firmware

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/qtshock/qtshockd/internal/elfgen"
)

func TestPatchBootloader(t *testing.T) {
	// Build the bootloader as QIO/2MB/80MHz so the patch is visible.
	orig, err := BuildApplication(elfgen.Bootloader(),
		FlashSettings{Mode: FlashModeQIO, Size: FlashSize2MB, Frequency: FlashFreq80MHz}, Xtal40MHz)
	if err != nil {
		t.Fatalf("BuildApplication() error: %v", err)
	}

	patched, err := PatchBootloader(orig, DefaultSettings())
	if err != nil {
		t.Fatalf("PatchBootloader() error: %v", err)
	}

	if len(patched) != len(orig) {
		t.Fatalf("len = %d, want %d", len(patched), len(orig))
	}
	if patched[2] != byte(FlashModeDIO) || patched[3] != 0x20 {
		t.Errorf("header = 0x%02X 0x%02X, want 0x02 0x20", patched[2], patched[3])
	}
	if orig[2] != byte(FlashModeQIO) {
		t.Error("input image was modified")
	}

	end := len(patched) - sha256.Size
	digest := sha256.Sum256(patched[:end])
	if !bytes.Equal(patched[end:], digest[:]) {
		t.Error("digest not recomputed after patch")
	}
}

func TestPatchBootloaderInvalid(t *testing.T) {
	tests := []struct {
		name string
		img  []byte
	}{
		{"empty", nil},
		{"wrong magic", append([]byte{0xE8, 1}, make([]byte, 40)...)},
		{"truncated segment", append([]byte{ImageMagic, 1}, make([]byte, 22)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PatchBootloader(tt.img, DefaultSettings()); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
