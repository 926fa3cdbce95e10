package options

import (
	"github.com/spf13/pflag"
)

var _ IOptions = (*TriggerOptions)(nil)

// TriggerOptions configures the game-state and VR listeners.
type TriggerOptions struct {
	// GSIAddr is where the game-state receiver listens.
	GSIAddr string `json:"gsi-addr" mapstructure:"gsi-addr"`

	// OSCAddr is the UDP address of the VR OSC listener.
	OSCAddr string `json:"osc-addr" mapstructure:"osc-addr"`

	EnableGSI bool `json:"enable-gsi" mapstructure:"enable-gsi"`
	EnableOSC bool `json:"enable-osc" mapstructure:"enable-osc"`
}

func NewTriggerOptions() *TriggerOptions {
	return &TriggerOptions{
		GSIAddr:   "127.0.0.1:3005",
		OSCAddr:   "127.0.0.1:9001",
		EnableGSI: true,
		EnableOSC: true,
	}
}

func (o *TriggerOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.EnableGSI {
		if err := ValidateAddress(o.GSIAddr); err != nil {
			errs = append(errs, err)
		}
	}
	if o.EnableOSC {
		if err := ValidateAddress(o.OSCAddr); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (o *TriggerOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.GSIAddr, "trigger.gsi-addr", o.GSIAddr, "Listen address of the game-state receiver.")
	fs.StringVar(&o.OSCAddr, "trigger.osc-addr", o.OSCAddr, "UDP listen address for VR OSC messages.")
	fs.BoolVar(&o.EnableGSI, "trigger.enable-gsi", o.EnableGSI, "Run the game-state receiver in serve mode.")
	fs.BoolVar(&o.EnableOSC, "trigger.enable-osc", o.EnableOSC, "Run the VR OSC listener in serve mode.")
}
