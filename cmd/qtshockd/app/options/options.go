// Package options aggregates the option groups of the qtshockd command.
package options

import (
	"errors"
	"net/http"

	"github.com/spf13/pflag"

	"github.com/qtshock/qtshockd/acquire"
	"github.com/qtshock/qtshockd/config"
	"github.com/qtshock/qtshockd/flasher"
	"github.com/qtshock/qtshockd/pkg/log"
	genericoptions "github.com/qtshock/qtshockd/pkg/options"
)

// Options holds every flag of qtshockd.
type Options struct {
	ConfigFile string `json:"-" mapstructure:"-"`

	Log     *log.Options                   `json:"log" mapstructure:"log"`
	Acquire *genericoptions.AcquireOptions `json:"acquire" mapstructure:"acquire"`
	S3      *genericoptions.S3Options      `json:"s3" mapstructure:"s3"`
	Serial  *genericoptions.SerialOptions  `json:"serial" mapstructure:"serial"`
	HTTP    *genericoptions.HTTPOptions    `json:"http" mapstructure:"http"`
	Device  *genericoptions.DeviceOptions  `json:"device" mapstructure:"device"`
	Trigger *genericoptions.TriggerOptions `json:"trigger" mapstructure:"trigger"`
}

// NewOptions returns Options with every group at its defaults.
func NewOptions() *Options {
	return &Options{
		Log:     log.NewOptions(),
		Acquire: genericoptions.NewAcquireOptions(),
		S3:      genericoptions.NewS3Options(),
		Serial:  genericoptions.NewSerialOptions(),
		HTTP:    genericoptions.NewHTTPOptions(),
		Device:  genericoptions.NewDeviceOptions(),
		Trigger: genericoptions.NewTriggerOptions(),
	}
}

// AddFlags binds every group to fs.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigFile, "config", o.ConfigFile, "Path to a YAML config file. Keys match the flag names.")

	o.Log.AddFlags(fs)
	for _, g := range o.groups() {
		g.AddFlags(fs)
	}
}

// Validate joins the problems of every group.
func (o *Options) Validate() error {
	errs := o.Log.Validate()
	for _, g := range o.groups() {
		errs = append(errs, g.Validate()...)
	}
	return errors.Join(errs...)
}

func (o *Options) groups() []genericoptions.IOptions {
	return []genericoptions.IOptions{o.Acquire, o.S3, o.Serial, o.HTTP, o.Device, o.Trigger}
}

// SessionOptions converts the serial group into flasher options.
func (o *Options) SessionOptions() []flasher.Option {
	return []flasher.Option{
		flasher.WithBaudRate(o.Serial.BaudRate),
		flasher.WithTimeout(o.Serial.Timeout),
		flasher.WithSyncAttempts(o.Serial.SyncAttempts),
		flasher.WithResetDelay(o.Serial.ResetDelay),
	}
}

// Acquirer builds the binary acquirer. An enabled S3 group replaces the
// HTTPS download with the bucket mirror.
func (o *Options) Acquirer(logger log.Logger) (*acquire.Acquirer, error) {
	var fetcher acquire.Fetcher = acquire.NewHTTPFetcher(o.Acquire.BaseURL, &http.Client{Timeout: o.Acquire.Timeout})
	if o.S3.Enabled {
		mf, err := acquire.NewMinioFetcher(o.S3)
		if err != nil {
			return nil, err
		}
		fetcher = mf
	}

	opts := []acquire.Option{acquire.WithFetcher(fetcher), acquire.WithLogger(logger)}
	if o.Acquire.WorkDir != "" {
		opts = append(opts, acquire.WithWorkDir(o.Acquire.WorkDir))
	}
	return acquire.New(opts...), nil
}

// State returns a State seeded with the device group.
func (o *Options) State() (*config.State, error) {
	s := config.NewState()
	if err := s.SetShockStrength(o.Device.ShockStrength); err != nil {
		return nil, err
	}
	if err := s.SetVibrateStrength(o.Device.VibrateStrength); err != nil {
		return nil, err
	}
	s.SetDeviceAddress(o.Device.Address)
	return s, nil
}
