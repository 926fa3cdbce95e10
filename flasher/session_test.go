package flasher

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/qtshock/qtshockd/firmware"
	"github.com/qtshock/qtshockd/internal/romsim"
	"github.com/qtshock/qtshockd/protocol"
)

// MockLogger records messages for assertions.
type MockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (l *MockLogger) Debug(msg string, kv ...interface{}) {
	l.debugMsgs = append(l.debugMsgs, msg)
}

func (l *MockLogger) Info(msg string, kv ...interface{}) {
	l.infoMsgs = append(l.infoMsgs, msg)
}

func (l *MockLogger) Error(msg string, kv ...interface{}) {
	l.errorMsgs = append(l.errorMsgs, msg)
}

func testOptions(extra ...Option) []Option {
	return append([]Option{WithResetDelay(0), WithSyncAttempts(5)}, extra...)
}

func connect(t *testing.T, dev *romsim.Device, usb *USBInfo, opts ...Option) (*Session, *romsim.Port) {
	t.Helper()
	port := dev.Port()
	s, err := Connect(context.Background(), port, usb, testOptions(opts...)...)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, port
}

func TestConnect(t *testing.T) {
	dev := romsim.New()
	logger := &MockLogger{}
	s, port := connect(t, dev, nil, WithLogger(logger))

	if s.State() != StateConnected {
		t.Errorf("State() = %s, want %s", s.State(), StateConnected)
	}
	if s.Chip() != protocol.ChipESP32 {
		t.Errorf("Chip() = %v, want ESP32", s.Chip())
	}
	if s.BaudRate() != protocol.FlashBaudRate || port.Baud() != protocol.FlashBaudRate {
		t.Errorf("baud = %d (port %d), want %d", s.BaudRate(), port.Baud(), protocol.FlashBaudRate)
	}
	if dev.Baud() != protocol.FlashBaudRate {
		t.Errorf("ROM baud = %d, want %d", dev.Baud(), protocol.FlashBaudRate)
	}

	wantOps := []byte{
		protocol.CmdSync,
		protocol.CmdReadReg,
		protocol.CmdSpiAttach,
		protocol.CmdSpiSetParams,
		protocol.CmdChangeBaudrate,
	}
	if got := dev.Ops(); !bytes.Equal(got, wantOps) {
		t.Errorf("ops = % X, want % X", got, wantOps)
	}

	if len(logger.infoMsgs) == 0 {
		t.Error("expected info log for the connection")
	}
}

func TestConnectKeepsROMBaudRate(t *testing.T) {
	dev := romsim.New()
	s, _ := connect(t, dev, nil, WithBaudRate(0))

	if s.BaudRate() != protocol.ROMBaudRate {
		t.Errorf("BaudRate() = %d, want %d", s.BaudRate(), protocol.ROMBaudRate)
	}
	for _, op := range dev.Ops() {
		if op == protocol.CmdChangeBaudrate {
			t.Error("CHANGE_BAUDRATE sent with baud rate 0")
		}
	}
}

func TestConnectRetriesSync(t *testing.T) {
	dev := romsim.New()
	dev.SyncDelay = 3

	connect(t, dev, nil)
}

func TestConnectResetStrategy(t *testing.T) {
	jtag := &USBInfo{VendorID: EspressifVID, ProductID: USBJTAGSerialPID}
	bridge := &USBInfo{VendorID: 0x10C4, ProductID: 0xEA60}

	tests := []struct {
		name    string
		usbJTAG bool
		usb     *USBInfo
		wantErr bool
	}{
		{"bridge with classic reset", false, bridge, false},
		{"no descriptor uses classic reset", false, nil, false},
		{"jtag with jtag reset", true, jtag, false},
		{"jtag with classic reset", true, bridge, true},
		{"bridge with jtag reset", false, jtag, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := romsim.New()
			dev.USBJTAG = tt.usbJTAG
			port := dev.Port()

			s, err := Connect(context.Background(), port, tt.usb, testOptions()...)
			if tt.wantErr {
				var ce *ConnectError
				if !errors.As(err, &ce) {
					t.Fatalf("expected *ConnectError, got %v", err)
				}
				if ce.Stage != "sync" {
					t.Errorf("Stage = %q, want sync", ce.Stage)
				}
				return
			}
			if err != nil {
				t.Fatalf("Connect() error: %v", err)
			}
			_ = s.Close()
		})
	}
}

func TestConnectErrors(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*romsim.Device)
		wantStage string
		check     func(*testing.T, error)
	}{
		{
			name:      "silent ROM",
			setup:     func(d *romsim.Device) { d.SilentOps = map[byte]bool{protocol.CmdSync: true} },
			wantStage: "sync",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, protocol.ErrTimeout) {
					t.Errorf("expected ErrTimeout in chain, got %v", err)
				}
			},
		},
		{
			name:      "wrong chip",
			setup:     func(d *romsim.Device) { d.Magic = 0x000007C6 },
			wantStage: "chip detect",
			check: func(t *testing.T, err error) {
				var uc *UnsupportedChipError
				if !errors.As(err, &uc) {
					t.Fatalf("expected *UnsupportedChipError, got %v", err)
				}
				if uc.Chip != protocol.ChipESP32S2 {
					t.Errorf("Chip = %v, want ESP32-S2", uc.Chip)
				}
			},
		},
		{
			name:      "magic read fails",
			setup:     func(d *romsim.Device) { d.FailRegs = map[uint32]byte{protocol.ChipDetectMagicReg: protocol.ErrFailedToAct} },
			wantStage: "chip detect",
		},
		{
			name:      "spi attach rejected",
			setup:     func(d *romsim.Device) { d.FailOps = map[byte]byte{protocol.CmdSpiAttach: protocol.ErrFailedToAct} },
			wantStage: "spi attach",
			check: func(t *testing.T, err error) {
				if !protocol.IsProtocolError(err) {
					t.Errorf("expected protocol error in chain, got %v", err)
				}
			},
		},
		{
			name:      "spi params rejected",
			setup:     func(d *romsim.Device) { d.FailOps = map[byte]byte{protocol.CmdSpiSetParams: protocol.ErrInvalidMessage} },
			wantStage: "spi params",
		},
		{
			name:      "baud change rejected",
			setup:     func(d *romsim.Device) { d.FailOps = map[byte]byte{protocol.CmdChangeBaudrate: protocol.ErrFailedToAct} },
			wantStage: "change baud",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := romsim.New()
			tt.setup(dev)
			port := dev.Port()

			_, err := Connect(context.Background(), port, nil, testOptions()...)
			var ce *ConnectError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConnectError, got %v", err)
			}
			if ce.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", ce.Stage, tt.wantStage)
			}
			if port.Closed() {
				t.Error("Connect closed a port it does not own")
			}
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestConnectNilPort(t *testing.T) {
	if _, err := Connect(context.Background(), nil, nil); err == nil {
		t.Error("expected error for nil port")
	}
}

func TestConnectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Connect(ctx, romsim.New().Port(), nil, testOptions()...)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestEraseFlash(t *testing.T) {
	dev := romsim.New()
	s, _ := connect(t, dev, nil)

	if err := s.EraseFlash(context.Background()); err != nil {
		t.Fatalf("EraseFlash() error: %v", err)
	}
	if s.State() != StateErased {
		t.Errorf("State() = %s, want %s", s.State(), StateErased)
	}

	erases := dev.Erases()
	want := romsim.Region{Offset: 0, Size: 4 << 20}
	if len(erases) != 1 || erases[0] != want {
		t.Errorf("erases = %+v, want [%+v]", erases, want)
	}
	if !bytes.Equal(dev.Flash(0x3FFFF0, 16), bytes.Repeat([]byte{0xFF}, 16)) {
		t.Error("end of flash not erased")
	}

	if err := s.EraseFlash(context.Background()); err == nil {
		t.Error("second EraseFlash() succeeded, want state error")
	}
}

func TestEraseFlashFailure(t *testing.T) {
	dev := romsim.New()
	dev.FailOps = map[byte]byte{protocol.CmdFlashBegin: protocol.ErrFailedToAct}
	s, _ := connect(t, dev, nil)

	err := s.EraseFlash(context.Background())
	var ee *EraseError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EraseError, got %v", err)
	}
	if s.State() != StateFailed {
		t.Errorf("State() = %s, want %s", s.State(), StateFailed)
	}
}

func TestCrystalFrequency(t *testing.T) {
	tests := []struct {
		name string
		xtal int
		baud int
		want firmware.XtalFrequency
	}{
		{"40MHz at flash baud", 40, protocol.FlashBaudRate, firmware.Xtal40MHz},
		{"26MHz at flash baud", 26, protocol.FlashBaudRate, firmware.Xtal26MHz},
		{"40MHz at ROM baud", 40, 0, firmware.Xtal40MHz},
		{"26MHz at ROM baud", 26, 0, firmware.Xtal26MHz},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := romsim.New()
			dev.XtalMHz = tt.xtal
			s, _ := connect(t, dev, nil, WithBaudRate(tt.baud))

			got, err := s.CrystalFrequency(context.Background())
			if err != nil {
				t.Fatalf("CrystalFrequency() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CrystalFrequency() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCrystalFrequencyFailure(t *testing.T) {
	dev := romsim.New()
	dev.FailRegs = map[uint32]byte{protocol.UartClkDivReg: protocol.ErrFailedToAct}
	s, _ := connect(t, dev, nil)

	if err := s.EraseFlash(context.Background()); err != nil {
		t.Fatalf("EraseFlash() error: %v", err)
	}

	_, err := s.CrystalFrequency(context.Background())
	var ce *ClockError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ClockError, got %v", err)
	}
	if s.State() != StateFailed {
		t.Errorf("State() = %s, want %s", s.State(), StateFailed)
	}
}

func TestCloseReleasesPort(t *testing.T) {
	dev := romsim.New()
	port := dev.Port()
	s, err := Connect(context.Background(), port, nil, testOptions()...)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	resets := dev.Resets()

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !port.Closed() {
		t.Error("port not closed")
	}
	if dev.Resets() != resets {
		t.Error("Close() hard-reset a session that never finished programming")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestEraseTimeout(t *testing.T) {
	if got := eraseTimeout(0, 4<<20, 3e9); got != 3e9 {
		t.Errorf("eraseTimeout below floor = %v, want 3s", got)
	}
	if got := eraseTimeout(30e9, 4<<20, 3e9); got != 120e9 {
		t.Errorf("eraseTimeout(4MB) = %v, want 2m0s", got)
	}
}
