package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gymcoding/invoice-web/query"
)

func newListCmd(flags *globalFlags) *cobra.Command {
	var (
		sort     string
		pageSize int
		cursor   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices page by page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := query.ParseSortField(sort)
			if err != nil {
				return err
			}

			e, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			page, err := e.container.Repository().List(cmd.Context(), pageSize, cursor, field)
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}
			return printPage(cmd, flags, page)
		},
	}

	cmd.Flags().StringVar(&sort, "sort", string(query.SortIssueDate), "Sort field: issue_date or total_amount")
	cmd.Flags().IntVar(&pageSize, "page-size", query.DefaultPageSize, "Invoices per page")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor returned by the previous page")

	return cmd
}

func printPage(cmd *cobra.Command, flags *globalFlags, page query.Page) error {
	if flags.jsonOutput {
		return writeJSON(cmd, page)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderPage(page))
	return nil
}
