package flasher

import (
	"errors"
	"strings"
	"testing"

	"github.com/qtshock/qtshockd/protocol"
)

func TestErrorMessages(t *testing.T) {
	romErr := &protocol.ProtocolError{Operation: "flash data", Status: 1, Code: protocol.ErrInvalidCRC}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "connect",
			err:  &ConnectError{Stage: "sync", Err: protocol.ErrTimeout},
			want: "connect failed during sync: timed out waiting for response",
		},
		{
			name: "unsupported chip",
			err:  &UnsupportedChipError{Chip: protocol.ChipESP32C3, Magic: 0x6921506F},
			want: "unsupported chip ESP32-C3 (magic 0x6921506F), expected ESP32",
		},
		{
			name: "erase",
			err:  &EraseError{Err: romErr},
			want: "erase flash: flash data failed: invalid CRC (0x07)",
		},
		{
			name: "clock",
			err:  &ClockError{Err: protocol.ErrTimeout},
			want: "crystal frequency: timed out waiting for response",
		},
		{
			name: "program with image",
			err:  &ProgramError{Image: "application", Offset: 0x10000, Err: romErr},
			want: "program application at 0x10000: flash data failed: invalid CRC (0x07)",
		},
		{
			name: "program without image",
			err:  &ProgramError{Err: errors.New("bad elf")},
			want: "program: bad elf",
		},
		{
			name: "state",
			err:  &StateError{Operation: "write flash", State: StateConnected},
			want: "cannot write flash in state connected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	romErr := &protocol.ProtocolError{Operation: "flash begin", Status: 1, Code: protocol.ErrFailedToAct}

	wrapped := []error{
		&ConnectError{Stage: "spi attach", Err: romErr},
		&EraseError{Err: romErr},
		&ClockError{Err: romErr},
		&ProgramError{Image: "bootloader", Err: romErr},
	}
	for _, err := range wrapped {
		var pe *protocol.ProtocolError
		if !errors.As(err, &pe) {
			t.Errorf("%T does not unwrap to *protocol.ProtocolError", err)
			continue
		}
		if !strings.Contains(err.Error(), "failed to act") {
			t.Errorf("%T lost ROM detail: %q", err, err.Error())
		}
	}
}
