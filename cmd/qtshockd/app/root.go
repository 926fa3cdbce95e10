// Package app builds the qtshockd command tree.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/qtshock/qtshockd/cmd/qtshockd/app/options"
	"github.com/qtshock/qtshockd/pipeline"
	"github.com/qtshock/qtshockd/pkg/log"
	"github.com/qtshock/qtshockd/transport"
)

const (
	commandName = "qtshockd"
	commandDesc = `qtshockd flashes QTShock firmware onto ESP32 boards over USB serial and
relays game and VR events to a QTShock device on the local network.`

	envPrefix = "QTSHOCK"
)

// NewRootCommand returns the qtshockd command using the host serial ports.
func NewRootCommand(ctx context.Context) *cobra.Command {
	return newRootCommand(ctx, transport.Default)
}

func newRootCommand(ctx context.Context, tr pipeline.Transport) *cobra.Command {
	opts := options.NewOptions()
	v := viper.New()

	cmd := &cobra.Command{
		Use:           commandName,
		Short:         "Flash and drive QTShock devices",
		Long:          commandDesc,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(v, cmd.Flags(), opts.ConfigFile); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			log.Init(opts.Log)
			return nil
		},
	}
	cmd.SetContext(ctx)
	opts.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newFlashCommand(opts, tr),
		newListCommand(opts, tr),
		newServeCommand(opts, tr, v),
		newGSIConfigCommand(opts),
	)
	return cmd
}

// loadConfig overlays the config file and QTSHOCK_ environment variables
// onto every flag that was not set on the command line. Keys are the flag
// names, so "device.shock-strength" is read from the device.shock-strength
// YAML key or QTSHOCK_DEVICE_SHOCK_STRENGTH.
func loadConfig(v *viper.Viper, fs *pflag.FlagSet, file string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == "config" || !v.IsSet(f.Name) {
			return
		}
		if err := fs.Set(f.Name, configValue(v, f)); err != nil {
			errs = append(errs, fmt.Errorf("config %s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

func configValue(v *viper.Viper, f *pflag.Flag) string {
	if strings.HasSuffix(f.Value.Type(), "Slice") {
		return strings.Join(v.GetStringSlice(f.Name), ",")
	}
	return v.GetString(f.Name)
}
