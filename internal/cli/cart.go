package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/vitrina/internal/cart"
	"github.com/roach88/vitrina/internal/money"
)

// NewCartCommand creates the cart command group.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Build and price the current cart",
	}

	cmd.AddCommand(newCartAddCommand(rootOpts))
	cmd.AddCommand(newCartSetQuantityCommand(rootOpts))
	cmd.AddCommand(newCartRemoveCommand(rootOpts))
	cmd.AddCommand(newCartShowCommand(rootOpts))
	cmd.AddCommand(newCartClearCommand(rootOpts))

	return cmd
}

type cartAddOptions struct {
	Variant  string
	Quantity int
	Margin   float64
}

func newCartAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &cartAddOptions{}

	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Long: `Add a product to the cart, pricing it from the catalog's wholesale
price plus a margin. Adding the same product and variant again merges into
the existing line.

Example:
  vitrina cart add buso-l --variant 42 --qty 2 --margin 25`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			var margin *money.Percent
			if cmd.Flags().Changed("margin") {
				p, err := money.PercentFromFloat(opts.Margin)
				if err != nil {
					return WrapExitError(ExitFailure, "invalid margin", err)
				}
				margin = &p
			}

			if err := app.Cart.AddItem(cmd.Context(), args[0], opts.Variant, opts.Quantity, margin); err != nil {
				return err
			}

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			totals := app.Cart.Totals()
			return f.Successf(totals, "added %s ×%d, cart total %s", args[0], opts.Quantity, totals.GrandTotal.Format())
		},
	}

	cmd.Flags().StringVar(&opts.Variant, "variant", "", "variant, e.g. a size")
	cmd.Flags().IntVar(&opts.Quantity, "qty", 1, "units to add")
	cmd.Flags().Float64Var(&opts.Margin, "margin", 0, "margin percent (defaults to the configured margin)")

	return cmd
}

func newCartSetQuantityCommand(rootOpts *RootOptions) *cobra.Command {
	var variant string

	cmd := &cobra.Command{
		Use:           "set-qty <product-id> <quantity>",
		Short:         "Set a line's quantity (0 removes the line)",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var qty int
			if _, err := fmt.Sscanf(args[1], "%d", &qty); err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("invalid quantity %q", args[1]), err)
			}

			app, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Cart.UpdateQuantity(cmd.Context(), args[0], variant, qty); err != nil {
				return err
			}

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			totals := app.Cart.Totals()
			return f.Successf(totals, "cart total %s", totals.GrandTotal.Format())
		},
	}

	cmd.Flags().StringVar(&variant, "variant", "", "variant of the line to change")

	return cmd
}

func newCartRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	var variant string

	cmd := &cobra.Command{
		Use:           "rm <product-id>",
		Short:         "Remove a line from the cart",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Cart.RemoveItem(cmd.Context(), args[0], variant); err != nil {
				return err
			}

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			totals := app.Cart.Totals()
			return f.Successf(totals, "removed %s, cart total %s", args[0], totals.GrandTotal.Format())
		},
	}

	cmd.Flags().StringVar(&variant, "variant", "", "variant of the line to remove")

	return cmd
}

func newCartShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show cart lines and totals",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			lines := app.Cart.Lines()
			totals := app.Cart.Totals()

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			if f.Format == "json" {
				return f.Success(struct {
					Lines  []cart.Line `json:"lines"`
					Totals cart.Totals `json:"totals"`
				}{Lines: lines, Totals: totals})
			}

			out := cmd.OutOrStdout()
			if len(lines) == 0 {
				fmt.Fprintln(out, "cart is empty")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PRODUCT\tVARIANT\tQTY\tUNIT\tLINE TOTAL")
			for _, l := range lines {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					l.ProductName, l.Variant, l.Quantity, l.FinalUnit().Format(), l.FinalUnit().Mul(l.Quantity).Format())
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nSubtotal (wholesale): %s\n", totals.SubtotalWholesale.Format())
			fmt.Fprintf(out, "Profit:               %s\n", totals.ProfitTotal.Format())
			fmt.Fprintf(out, "Total:                %s\n", totals.GrandTotal.Format())
			return nil
		},
	}
}

func newCartClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Empty the cart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Cart.Clear(cmd.Context()); err != nil {
				return err
			}

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			return f.Successf(app.Cart.Totals(), "cart cleared")
		},
	}
}
