package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HTTPOptions)(nil)

// HTTPOptions contains configuration items related to the API server.
type HTTPOptions struct {
	// Addr is the server bind address and port.
	Addr string `json:"addr" mapstructure:"addr"`

	// Timeout bounds reads and writes of non-streaming requests.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// AllowedOrigins lists CORS origins for the UI.
	AllowedOrigins []string `json:"allowed-origins" mapstructure:"allowed-origins"`
}

func NewHTTPOptions() *HTTPOptions {
	return &HTTPOptions{
		Addr:           "127.0.0.1:8080",
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

func (o *HTTPOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}
	if err := ValidateAddress(o.Addr); err != nil {
		errors = append(errors, err)
	}
	return errors
}

func (o *HTTPOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, "http.addr", o.Addr, "Specify the HTTP server bind address and port.")
	fs.DurationVar(&o.Timeout, "http.timeout", o.Timeout, "Timeout for server connections.")
	fs.StringSliceVar(&o.AllowedOrigins, "http.allowed-origins", o.AllowedOrigins, "CORS origins allowed to call the API.")
}
