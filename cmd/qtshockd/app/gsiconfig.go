package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qtshock/qtshockd/cmd/qtshockd/app/options"
	"github.com/qtshock/qtshockd/trigger"
)

func newGSIConfigCommand(opts *options.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "gsi-config GAME_DIR",
		Short: "Install the Counter-Strike 2 game-state integration config",
		Long: `gsi-config writes the game-state integration config into GAME_DIR, the
"Counter-Strike Global Offensive" install directory, so the game reports
player deaths to --trigger.gsi-addr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := trigger.WriteGSIConfig(args[0], opts.Trigger.GSIAddr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
}
