package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qtshock/qtshockd/cmd/qtshockd/app/options"
	"github.com/qtshock/qtshockd/pipeline"
	"github.com/qtshock/qtshockd/pkg/log"
)

func newFlashCommand(opts *options.Options, tr pipeline.Transport) *cobra.Command {
	return &cobra.Command{
		Use:   "flash ENDPOINT [SOURCE]",
		Short: "Flash the QTShock firmware onto the board at ENDPOINT",
		Long: `Flash downloads (SOURCE "server") or reads from ./bin (SOURCE "local") the
firmware, bootloader and partition table and writes them to the ESP32 on the
USB serial port ENDPOINT. SOURCE defaults to --acquire.source.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := opts.Acquire.Source
			if len(args) == 2 {
				source = args[1]
			}

			logger := log.WithName("flash")
			acq, err := opts.Acquirer(logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			emitter := newTerminalEmitter(out)
			orch := pipeline.New(
				pipeline.WithTransport(tr),
				pipeline.WithAcquirer(acq),
				pipeline.WithEmitter(emitter),
				pipeline.WithSessionOptions(opts.SessionOptions()...),
				pipeline.WithLogger(logger),
			)

			err = orch.Flash(cmd.Context(), args[0], source)
			emitter.Finish()
			fmt.Fprintln(out, plain(pipeline.Message(err)))
			return err
		},
	}
}
