package log

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Options contains configuration settings for the logger.
type Options struct {
	// Name is an optional name for the logger.
	Name string `json:"name,omitempty" mapstructure:"name"`

	// Level is the minimum log level: debug, info, warn or error.
	Level string `json:"level,omitempty" mapstructure:"level"`

	// Format is 'json' or 'console'.
	Format string `json:"format,omitempty" mapstructure:"format"`

	// EnableColor enables colorized output for console format.
	EnableColor bool `json:"enable-color,omitempty" mapstructure:"enable-color"`

	// DisableCaller stops annotating logs with the calling function's file name and line number.
	DisableCaller bool `json:"disable-caller,omitempty" mapstructure:"disable-caller"`

	// CallerSkip increases the number of callers skipped by caller annotation.
	CallerSkip int `json:"caller-skip,omitempty" mapstructure:"caller-skip"`

	// Output is 'stdout' or 'stderr'. Ignored when File is set.
	Output string `json:"output,omitempty" mapstructure:"output"`

	// File, when set, sends logs to a rotated file instead of Output.
	File string `json:"file,omitempty" mapstructure:"file"`

	// MaxSizeMB is the size at which File is rotated.
	MaxSizeMB int `json:"max-size,omitempty" mapstructure:"max-size"`

	// MaxBackups is the number of rotated files kept.
	MaxBackups int `json:"max-backups,omitempty" mapstructure:"max-backups"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Level:       "info",
		Format:      "console",
		EnableColor: true,
		CallerSkip:  2,
		Output:      "stderr",
		MaxSizeMB:   20,
		MaxBackups:  3,
	}
}

// Validate validates all the required options.
func (o *Options) Validate() []error {
	var errs []error

	switch o.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q", o.Level))
	}
	switch o.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q", o.Format))
	}
	switch o.Output {
	case "stdout", "stderr":
	default:
		errs = append(errs, fmt.Errorf("invalid log output %q", o.Output))
	}
	if o.File != "" && o.MaxSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("log.max-size must be positive, got %d", o.MaxSizeMB))
	}

	return errs
}

// AddFlags binds command-line flags to the Options fields.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Name, "log.name", o.Name, "An optional name for the logger.")
	fs.StringVar(&o.Format, "log.format", o.Format, "The log output format ('json' or 'console').")
	fs.BoolVar(&o.EnableColor, "log.enable-color", o.EnableColor, "Enable colorized output for the console format.")
	fs.IntVar(&o.CallerSkip, "log.caller-skip", o.CallerSkip, "The number of caller frames to skip.")

	usage := "The minimum log level to output (e.g., 'debug', 'info', 'warn', 'error')."
	fs.StringVar(&o.Level, "log.level", o.Level, usage)

	usage = "Disable the caller field in logs (file and line number)."
	fs.BoolVar(&o.DisableCaller, "log.disable-caller", o.DisableCaller, usage)

	fs.StringVar(&o.Output, "log.output", o.Output, "Console stream for logs ('stdout' or 'stderr').")
	fs.StringVar(&o.File, "log.file", o.File, "Write logs to this file, rotating it by size.")
	fs.IntVar(&o.MaxSizeMB, "log.max-size", o.MaxSizeMB, "Log file size in megabytes before rotation.")
	fs.IntVar(&o.MaxBackups, "log.max-backups", o.MaxBackups, "Number of rotated log files to keep.")
}
