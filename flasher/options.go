package flasher

import (
	"time"

	"github.com/qtshock/qtshockd/firmware"
	"github.com/qtshock/qtshockd/protocol"
)

// Config holds the session configuration.
type Config struct {
	// Logger is used for logging operations (optional)
	Logger Logger

	// Timeout is the response timeout of ordinary commands
	Timeout time.Duration

	// SyncTimeout is the response timeout of a single SYNC attempt
	SyncTimeout time.Duration

	// SyncAttempts is the number of SYNC packets sent before giving up
	SyncAttempts int

	// EraseTimeoutPerMB scales the FLASH_BEGIN timeout with the erased size
	EraseTimeoutPerMB time.Duration

	// BaudRate is negotiated with CHANGE_BAUDRATE after sync. Zero keeps
	// the ROM rate.
	BaudRate int

	// Settings describes the attached flash chip
	Settings firmware.FlashSettings

	// ResetDelay is the base unit of the reset line timings
	ResetDelay time.Duration
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Timeout:           3 * time.Second,
		SyncTimeout:       100 * time.Millisecond,
		SyncAttempts:      10,
		EraseTimeoutPerMB: 30 * time.Second,
		BaudRate:          protocol.FlashBaudRate,
		Settings:          firmware.DefaultSettings(),
		ResetDelay:        50 * time.Millisecond,
	}
}

// Option is a functional option for configuring a Session.
type Option func(*Config)

// WithLogger sets a logger for the session operations.
//
// Example:
//
//	s, err := flasher.Connect(ctx, port, usb, flasher.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTimeout sets the response timeout of ordinary commands.
//
// Example:
//
//	s, err := flasher.Connect(ctx, port, usb, flasher.WithTimeout(5*time.Second))
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithSyncAttempts sets how many SYNC packets are sent during Connect.
func WithSyncAttempts(attempts int) Option {
	return func(c *Config) {
		if attempts > 0 {
			c.SyncAttempts = attempts
		}
	}
}

// WithBaudRate sets the rate negotiated after sync. Zero keeps 115200.
//
// Example:
//
//	s, err := flasher.Connect(ctx, port, usb, flasher.WithBaudRate(921600))
func WithBaudRate(baud int) Option {
	return func(c *Config) {
		if baud >= 0 {
			c.BaudRate = baud
		}
	}
}

// WithFlashSettings sets the flash chip description.
func WithFlashSettings(settings firmware.FlashSettings) Option {
	return func(c *Config) {
		c.Settings = settings
	}
}

// WithResetDelay sets the base unit of the reset line timings.
// Default is 50ms.
func WithResetDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.ResetDelay = d
		}
	}
}
