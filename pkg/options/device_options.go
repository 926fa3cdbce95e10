package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*DeviceOptions)(nil)

// DeviceOptions configures the device control client.
type DeviceOptions struct {
	// Address is the device IP or host. Empty means discover over mDNS.
	Address string `json:"address" mapstructure:"address"`

	// Hostname is looked up over mDNS when Address is empty.
	Hostname string `json:"hostname" mapstructure:"hostname"`

	// Shocker is the shocker index sent with every command.
	Shocker int `json:"shocker" mapstructure:"shocker"`

	ShockStrength   int `json:"shock-strength" mapstructure:"shock-strength"`
	VibrateStrength int `json:"vibrate-strength" mapstructure:"vibrate-strength"`

	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

func NewDeviceOptions() *DeviceOptions {
	return &DeviceOptions{
		Hostname:        "qtshock",
		ShockStrength:   10,
		VibrateStrength: 80,
		Timeout:         5 * time.Second,
	}
}

func (o *DeviceOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Address == "" && o.Hostname == "" {
		errs = append(errs, fmt.Errorf("device.address or device.hostname is required"))
	}
	if o.Shocker < 0 {
		errs = append(errs, fmt.Errorf("device.shocker cannot be negative"))
	}
	for name, v := range map[string]int{"device.shock-strength": o.ShockStrength, "device.vibrate-strength": o.VibrateStrength} {
		if v < 1 || v > 99 {
			errs = append(errs, fmt.Errorf("%s must be within 1..99, got %d", name, v))
		}
	}
	return errs
}

func (o *DeviceOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Address, "device.address", o.Address, "Device IP address (skips mDNS discovery).")
	fs.StringVar(&o.Hostname, "device.hostname", o.Hostname, "Device mDNS host name, without .local.")
	fs.IntVar(&o.Shocker, "device.shocker", o.Shocker, "Shocker index sent with each command.")
	fs.IntVar(&o.ShockStrength, "device.shock-strength", o.ShockStrength, "Shock strength (1-99).")
	fs.IntVar(&o.VibrateStrength, "device.vibrate-strength", o.VibrateStrength, "Vibrate strength (1-99).")
	fs.DurationVar(&o.Timeout, "device.timeout", o.Timeout, "Timeout for device requests and discovery.")
}
