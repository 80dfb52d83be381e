package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gymcoding/invoice-web/internal/importer"
	"github.com/gymcoding/invoice-web/invoice"
)

// DefaultItemDataSource receives line items when --items-source is not set.
const DefaultItemDataSource = "invoice-items"

type seedSummary struct {
	DataSource string            `json:"dataSource"`
	Items      int               `json:"items"`
	Invoices   []invoice.Invoice `json:"invoices"`
}

func newSeedCmd(flags *globalFlags) *cobra.Command {
	var (
		file        string
		itemsSource string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import a YAML or CSV fixture into the snapshot store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open fixture: %w", err)
			}
			defer f.Close()

			schema := invoice.DefaultSchema()
			batch, err := importer.New(schema).Parse(file, f)
			if err != nil {
				return fmt.Errorf("import %s: %w", file, err)
			}

			dataSource := e.config.Store.DataSourceID
			if err := batch.Load(cmd.Context(), e.store, dataSource, itemsSource); err != nil {
				return err
			}

			// Item totals are not joined here; the summary shows header fields.
			transformer := invoice.NewTransformer(schema)
			summary := seedSummary{DataSource: dataSource, Items: len(batch.Items)}
			for _, rec := range batch.Invoices {
				summary.Invoices = append(summary.Invoices, transformer.ToInvoice(rec, nil))
			}

			if flags.jsonOutput {
				return writeJSON(cmd, summary)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSeedSummary(summary))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Fixture to import (.yaml, .yml or .csv)")
	cmd.Flags().StringVar(&itemsSource, "items-source", DefaultItemDataSource, "Data source that receives line items")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
