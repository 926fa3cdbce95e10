package app

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/qtshock/qtshockd/cmd/qtshockd/app/options"
	"github.com/qtshock/qtshockd/pipeline"
	"github.com/qtshock/qtshockd/pkg/log"
)

func newListCommand(opts *options.Options, tr pipeline.Transport) *cobra.Command {
	var table bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the USB serial ports a board can be flashed on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !table {
				orch := pipeline.New(pipeline.WithTransport(tr), pipeline.WithLogger(log.WithName("list")))
				fmt.Fprintln(out, orch.ListUSBEndpoints())
				return nil
			}

			eps, err := tr.ListUSB()
			if err != nil {
				return err
			}
			t := uitable.New()
			t.MaxColWidth = 50
			t.AddRow("ENDPOINT", "PRODUCT", "VID:PID", "SERIAL")
			for _, ep := range eps {
				t.AddRow(ep.Name, ep.USB.Product,
					fmt.Sprintf("%04X:%04X", ep.USB.VendorID, ep.USB.ProductID),
					ep.USB.SerialNumber)
			}
			fmt.Fprintln(out, t)
			return nil
		},
	}
	cmd.Flags().BoolVar(&table, "table", false, "Print a table instead of the UI option markup.")
	return cmd
}
