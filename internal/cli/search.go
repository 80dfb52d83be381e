package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gymcoding/invoice-web/query"
)

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var (
		filters  query.Filters
		pageSize int
		cursor   string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search invoices by client, number, status and issue date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := filters.Normalize().Validate(); err != nil {
				return err
			}

			e, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			page, err := e.container.Repository().Search(cmd.Context(), filters, pageSize, cursor)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			return printPage(cmd, flags, page)
		},
	}

	cmd.Flags().StringVarP(&filters.Query, "query", "q", "", "Match client name or invoice number")
	cmd.Flags().StringVar(&filters.Status, "status", "", "Status: pending, approved or rejected")
	cmd.Flags().StringVar(&filters.DateFrom, "from", "", "Earliest issue date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&filters.DateTo, "to", "", "Latest issue date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&pageSize, "page-size", query.DefaultPageSize, "Invoices per page")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor returned by the previous page")

	return cmd
}
