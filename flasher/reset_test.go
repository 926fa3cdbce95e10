package flasher

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// linePort records DTR/RTS changes.
type linePort struct {
	Port
	lines []string
}

func (p *linePort) SetDTR(v bool) error {
	p.lines = append(p.lines, fmt.Sprintf("DTR=%t", v))
	return nil
}

func (p *linePort) SetRTS(v bool) error {
	p.lines = append(p.lines, fmt.Sprintf("RTS=%t", v))
	return nil
}

func TestResetSequences(t *testing.T) {
	tests := []struct {
		name  string
		reset func(context.Context, Port, time.Duration) error
		want  []string
	}{
		{
			name:  "classic",
			reset: ClassicReset{}.Reset,
			want: []string{
				"DTR=false", "RTS=true",
				"DTR=true", "RTS=false",
				"DTR=false", "RTS=false",
			},
		},
		{
			name:  "usb-jtag-serial",
			reset: USBJTAGSerialReset{}.Reset,
			want: []string{
				"DTR=false", "RTS=false",
				"DTR=true", "RTS=false",
				"RTS=true", "DTR=true",
				"DTR=false", "RTS=true",
				"DTR=false", "RTS=false",
			},
		},
		{
			name:  "hard reset",
			reset: hardReset,
			want: []string{
				"RTS=true", "DTR=false",
				"RTS=false", "DTR=false",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := &linePort{}
			if err := tt.reset(context.Background(), port, 0); err != nil {
				t.Fatalf("reset error: %v", err)
			}
			if diff := cmp.Diff(tt.want, port.lines); diff != "" {
				t.Errorf("line sequence mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResetStrategySelection(t *testing.T) {
	tests := []struct {
		name string
		usb  *USBInfo
		want string
	}{
		{"nil descriptor", nil, "classic"},
		{"cp210x bridge", &USBInfo{VendorID: 0x10C4, ProductID: 0xEA60}, "classic"},
		{"espressif other pid", &USBInfo{VendorID: EspressifVID, ProductID: 0x0002}, "classic"},
		{"usb-jtag-serial", &USBInfo{VendorID: EspressifVID, ProductID: USBJTAGSerialPID}, "usb-jtag-serial"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resetStrategy(tt.usb).Name(); got != tt.want {
				t.Errorf("resetStrategy() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResetHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	port := &linePort{}
	if err := (ClassicReset{}).Reset(ctx, port, time.Hour); err == nil {
		t.Fatal("expected context error")
	}
	if len(port.lines) != 2 {
		t.Errorf("lines after cancel = %v, want only the first step", port.lines)
	}
}
