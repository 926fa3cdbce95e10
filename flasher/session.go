package flasher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/qtshock/qtshockd/firmware"
	"github.com/qtshock/qtshockd/protocol"
)

// maxStaleFrames bounds how many unrelated frames are skipped while waiting
// for a response.
const maxStaleFrames = 16

// Session is a connection to the ROM loader of an ESP32.
//
// A Session is not safe for concurrent use. Close must be called on every
// exit path to release the port.
type Session struct {
	port   Port
	reader *protocol.FrameReader
	config Config
	fsm    *fsm.FSM

	chip  protocol.ChipType
	baud  int
	reset ResetStrategy

	written   int
	closeOnce sync.Once
	closeErr  error
}

// Connect resets the chip into the ROM loader and performs the handshake:
//  1. Reset into download mode (strategy chosen from usb)
//  2. SYNC until the ROM answers
//  3. Read the chip magic register and reject anything but an ESP32
//  4. Attach and describe the SPI flash
//  5. Switch to the configured baud rate
//
// On failure the port is left open; the caller still owns it.
//
// Example:
//
//	s, err := flasher.Connect(ctx, port, &flasher.USBInfo{VendorID: 0x10C4, ProductID: 0xEA60})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
func Connect(ctx context.Context, port Port, usb *USBInfo, opts ...Option) (*Session, error) {
	if port == nil {
		return nil, fmt.Errorf("port cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		port:   port,
		reader: protocol.NewFrameReader(port),
		config: cfg,
		baud:   protocol.ROMBaudRate,
		reset:  resetStrategy(usb),
	}
	s.fsm = newStateMachine(s)

	if err := s.connect(ctx); err != nil {
		s.failed(ctx)
		return nil, err
	}
	if err := s.transition(ctx, EventSynced, "connect"); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) connect(ctx context.Context) error {
	s.logDebug("resetting into loader", "strategy", s.reset.Name())
	if err := s.reset.Reset(ctx, s.port, s.config.ResetDelay); err != nil {
		return &ConnectError{Stage: "reset", Err: err}
	}

	if err := s.sync(ctx); err != nil {
		return &ConnectError{Stage: "sync", Err: err}
	}

	magic, err := s.ReadReg(ctx, protocol.ChipDetectMagicReg)
	if err != nil {
		return &ConnectError{Stage: "chip detect", Err: err}
	}
	s.chip = protocol.ChipFromMagic(magic)
	if s.chip != protocol.ChipESP32 {
		return &ConnectError{Stage: "chip detect", Err: &UnsupportedChipError{Chip: s.chip, Magic: magic}}
	}
	s.logDebug("chip detected", "chip", s.chip.String(), "magic", fmt.Sprintf("0x%08X", magic))

	if _, err := s.command(ctx, "spi attach", protocol.BuildSpiAttachCmd(), s.config.Timeout); err != nil {
		return &ConnectError{Stage: "spi attach", Err: err}
	}

	size := s.config.Settings.Size.Bytes()
	if size == 0 {
		return &ConnectError{Stage: "spi params", Err: fmt.Errorf("invalid flash size %s", s.config.Settings.Size)}
	}
	if _, err := s.command(ctx, "spi set params", protocol.BuildSpiSetParamsCmd(size), s.config.Timeout); err != nil {
		return &ConnectError{Stage: "spi params", Err: err}
	}

	if s.config.BaudRate > 0 && s.config.BaudRate != s.baud {
		if err := s.changeBaud(ctx, s.config.BaudRate); err != nil {
			return &ConnectError{Stage: "change baud", Err: err}
		}
	}

	s.logInfo("connected to ROM loader", "chip", s.chip.String(), "baud", s.baud)
	return nil
}

// sync sends SYNC until the ROM answers or the attempts run out.
func (s *Session) sync(ctx context.Context) error {
	_ = s.port.ResetInputBuffer()
	s.reader.Reset()

	var lastErr error
	for attempt := 1; attempt <= s.config.SyncAttempts; attempt++ {
		_, err := s.command(ctx, "sync", protocol.BuildSyncCmd(), s.config.SyncTimeout)
		if err == nil {
			// The ROM answers a single SYNC several times.
			_ = s.port.ResetInputBuffer()
			s.reader.Reset()
			s.logDebug("synced", "attempt", attempt)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		lastErr = err
	}
	return fmt.Errorf("no response after %d attempts: %w", s.config.SyncAttempts, lastErr)
}

func (s *Session) changeBaud(ctx context.Context, baud int) error {
	if _, err := s.command(ctx, "change baudrate", protocol.BuildChangeBaudCmd(uint32(baud), 0), s.config.Timeout); err != nil {
		return err
	}
	if err := s.port.SetBaudRate(baud); err != nil {
		return fmt.Errorf("set host baud rate: %w", err)
	}
	s.baud = baud

	// Give the ROM time to reprogram its divider.
	if err := sleep(ctx, s.config.ResetDelay); err != nil {
		return err
	}
	_ = s.port.ResetInputBuffer()
	s.reader.Reset()
	return nil
}

// ReadReg reads a 32-bit register of the chip.
func (s *Session) ReadReg(ctx context.Context, addr uint32) (uint32, error) {
	resp, err := s.command(ctx, "read reg", protocol.BuildReadRegCmd(addr), s.config.Timeout)
	if err != nil {
		return 0, err
	}
	return resp.Value, nil
}

// Chip returns the detected chip family.
func (s *Session) Chip() protocol.ChipType {
	return s.chip
}

// BaudRate returns the current UART rate.
func (s *Session) BaudRate() int {
	return s.baud
}

// BytesWritten returns the number of FLASH_DATA bytes acknowledged.
func (s *Session) BytesWritten() int {
	return s.written
}

// EraseFlash erases the whole flash chip through a FLASH_BEGIN region
// erase. The ROM acknowledges once the erase is complete, so the timeout
// scales with the flash size.
func (s *Session) EraseFlash(ctx context.Context) error {
	if err := s.transition(ctx, EventErase, "erase flash"); err != nil {
		return err
	}

	size := s.config.Settings.Size.Bytes()
	timeout := eraseTimeout(s.config.EraseTimeoutPerMB, size, s.config.Timeout)
	s.logInfo("erasing flash", "size", size, "timeout", timeout.String())

	start := time.Now()
	cmd := protocol.BuildFlashBeginCmd(size, 0, protocol.FlashWriteSize, 0)
	if _, err := s.command(ctx, "erase flash", cmd, timeout); err != nil {
		s.failed(ctx)
		return &EraseError{Err: err}
	}

	s.logInfo("flash erased", "elapsed", time.Since(start).String())
	return s.transition(ctx, EventErased, "erase flash")
}

// CrystalFrequency estimates the crystal from the UART clock divider the
// ROM configured for the current baud rate.
func (s *Session) CrystalFrequency(ctx context.Context) (firmware.XtalFrequency, error) {
	switch s.fsm.Current() {
	case StateConnected, StateErased:
	default:
		return 0, &StateError{Operation: "read crystal frequency", State: s.fsm.Current()}
	}

	div, err := s.ReadReg(ctx, protocol.UartClkDivReg)
	if err != nil {
		s.failed(ctx)
		return 0, &ClockError{Err: err}
	}
	div &= protocol.UartClkDivMask
	if div == 0 {
		s.failed(ctx)
		return 0, &ClockError{Err: errors.New("UART clock divider is zero")}
	}

	estimate := float64(s.baud) * float64(div) / 1e6
	xtal := firmware.Xtal26MHz
	if estimate > 33 {
		xtal = firmware.Xtal40MHz
	}
	s.logDebug("crystal frequency", "divider", div, "estimate_mhz", estimate, "xtal", xtal.String())
	return xtal, nil
}

// Close hard-resets the chip into the application when programming
// completed, then closes the port. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.fsm.Is(StateDone) {
			if err := hardReset(context.Background(), s.port, s.config.ResetDelay); err != nil {
				s.logError("hard reset failed", "error", err)
			}
		}
		s.closeErr = s.port.Close()
	})
	return s.closeErr
}

// command writes a request and waits up to timeout for the matching
// response, skipping stale frames of other commands.
func (s *Session) command(ctx context.Context, name string, pkt []byte, timeout time.Duration) (*protocol.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	op := pkt[1]
	if err := s.port.SetReadTimeout(timeout); err != nil {
		return nil, fmt.Errorf("%s: set read timeout: %w", name, err)
	}
	if _, err := s.port.Write(protocol.Encode(pkt)); err != nil {
		return nil, fmt.Errorf("%s: write command: %w", name, err)
	}

	for i := 0; i < maxStaleFrames; i++ {
		frame, err := s.reader.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		resp, err := protocol.ParseResponse(frame, protocol.ESP32StatusBytes)
		if err != nil {
			s.logDebug("skipping malformed frame", "command", name, "error", err)
			continue
		}
		if resp.Op != op {
			continue
		}
		if err := resp.Err(name); err != nil {
			return nil, err
		}
		return resp, nil
	}
	return nil, fmt.Errorf("%s: no matching response in %d frames", name, maxStaleFrames)
}

// eraseTimeout scales perMB with size, never going below floor.
func eraseTimeout(perMB time.Duration, size uint32, floor time.Duration) time.Duration {
	t := time.Duration(float64(perMB) * float64(size) / float64(1<<20))
	if t < floor {
		return floor
	}
	return t
}

// logDebug logs a debug message if a logger is configured.
func (s *Session) logDebug(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (s *Session) logInfo(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (s *Session) logError(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, keysAndValues...)
	}
}
