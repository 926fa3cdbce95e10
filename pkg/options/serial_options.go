package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SerialOptions)(nil)

// SerialOptions tunes the flashing session.
type SerialOptions struct {
	BaudRate     int           `json:"baud-rate" mapstructure:"baud-rate"`
	Timeout      time.Duration `json:"timeout" mapstructure:"timeout"`
	SyncAttempts int           `json:"sync-attempts" mapstructure:"sync-attempts"`
	ResetDelay   time.Duration `json:"reset-delay" mapstructure:"reset-delay"`
}

func NewSerialOptions() *SerialOptions {
	return &SerialOptions{
		BaudRate:     460800,
		Timeout:      3 * time.Second,
		SyncAttempts: 10,
		ResetDelay:   50 * time.Millisecond,
	}
}

func (o *SerialOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.BaudRate < 0 {
		errs = append(errs, fmt.Errorf("serial.baud-rate cannot be negative"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("serial.timeout must be positive"))
	}
	if o.SyncAttempts < 1 {
		errs = append(errs, fmt.Errorf("serial.sync-attempts must be at least 1"))
	}
	if o.ResetDelay <= 0 {
		errs = append(errs, fmt.Errorf("serial.reset-delay must be positive"))
	}
	return errs
}

func (o *SerialOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.BaudRate, "serial.baud-rate", o.BaudRate, "Baud rate requested after sync (0 keeps 115200).")
	fs.DurationVar(&o.Timeout, "serial.timeout", o.Timeout, "Timeout for a single bootloader command.")
	fs.IntVar(&o.SyncAttempts, "serial.sync-attempts", o.SyncAttempts, "SYNC attempts before giving up on the bootloader.")
	fs.DurationVar(&o.ResetDelay, "serial.reset-delay", o.ResetDelay, "Unit delay of the DTR/RTS reset sequence.")
}
