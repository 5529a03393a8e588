package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/vitrina/internal/catalog"
	"github.com/roach88/vitrina/internal/money"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the replicated product catalog",
	}

	cmd.AddCommand(newCatalogListCommand(rootOpts))
	cmd.AddCommand(newCatalogPutCommand(rootOpts))
	cmd.AddCommand(newCatalogRemoveCommand(rootOpts))

	return cmd
}

func newCatalogListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List the converged catalog",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			records := app.Catalog.Snapshot()
			f := newFormatter(rootOpts, cmd.OutOrStdout())
			if f.Format == "json" {
				return f.Success(records)
			}

			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "catalog is empty")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK\tCATEGORY")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.Name, r.UnitPrice.Format(), r.Stock, r.Category)
			}
			return w.Flush()
		},
	}
}

type catalogPutOptions struct {
	Name     string
	Price    int64
	Stock    int
	Category string
}

func newCatalogPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &catalogPutOptions{}

	cmd := &cobra.Command{
		Use:   "put <product-id>",
		Short: "Create or edit a product",
		Long: `Create or edit a product in the shared catalog.

The write is stamped with this replica's logical timestamp and converges to
every other replica via last-writer-wins.

Example:
  vitrina catalog put buso-l --name "Buso L" --price 12500 --stock 4 --category buso`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			rec, err := app.Catalog.Put(cmd.Context(), catalog.Record{
				ID:        args[0],
				Name:      opts.Name,
				UnitPrice: money.Amount(opts.Price),
				Stock:     opts.Stock,
				Category:  opts.Category,
			})
			if err != nil {
				return err
			}

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			return f.Successf(rec, "saved %s (%s, %s)", rec.ID, rec.Name, rec.UnitPrice.Format())
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "product name")
	cmd.Flags().Int64Var(&opts.Price, "price", 0, "wholesale unit price in minor units")
	cmd.Flags().IntVar(&opts.Stock, "stock", 0, "units in stock")
	cmd.Flags().StringVar(&opts.Category, "category", "", "product category")
	cobra.CheckErr(cmd.MarkFlagRequired("name"))
	cobra.CheckErr(cmd.MarkFlagRequired("price"))

	return cmd
}

func newCatalogRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <product-id>",
		Short:         "Delete a product (tombstoned, converges like an edit)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Catalog.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			return f.Successf(map[string]string{"deleted": args[0]}, "deleted %s", args[0])
		},
	}
}
