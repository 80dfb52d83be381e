package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one invoice with its line items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			inv, err := e.container.Repository().GetByID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get %s: %w", args[0], err)
			}

			if flags.jsonOutput {
				return writeJSON(cmd, inv)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderInvoice(inv))
			return nil
		},
	}
}
