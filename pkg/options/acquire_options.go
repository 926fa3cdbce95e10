package options

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*AcquireOptions)(nil)

// AcquireOptions selects where firmware binaries come from.
type AcquireOptions struct {
	// Source is "server" or "local".
	Source string `json:"source" mapstructure:"source"`

	// BaseURL is the directory the three binaries are downloaded from.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// Timeout bounds each download.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// WorkDir overrides the directory whose bin/ holds local binaries.
	WorkDir string `json:"work-dir" mapstructure:"work-dir"`
}

func NewAcquireOptions() *AcquireOptions {
	return &AcquireOptions{
		Source:  "server",
		BaseURL: "https://qtshock.com/downloads/bin/",
		Timeout: 60 * time.Second,
	}
}

func (o *AcquireOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Source != "server" && o.Source != "local" {
		errs = append(errs, fmt.Errorf("acquire.source must be 'server' or 'local', got %q", o.Source))
	}
	if u, err := url.Parse(o.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("acquire.base-url %q is not an absolute URL", o.BaseURL))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("acquire.timeout must be positive"))
	}
	return errs
}

func (o *AcquireOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Source, "acquire.source", o.Source, "Where to get firmware binaries: 'server' or 'local'.")
	fs.StringVar(&o.BaseURL, "acquire.base-url", o.BaseURL, "Base URL of the firmware, bootloader and partition binaries.")
	fs.DurationVar(&o.Timeout, "acquire.timeout", o.Timeout, "Timeout for each binary download.")
	fs.StringVar(&o.WorkDir, "acquire.work-dir", o.WorkDir, "Directory containing bin/ for local binaries (default: current directory).")
}
