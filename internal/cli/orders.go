package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewOrdersCommand creates the orders command group.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and dispatch submitted orders",
	}

	cmd.AddCommand(newOrdersListCommand(rootOpts))
	cmd.AddCommand(newOrdersShowCommand(rootOpts))
	cmd.AddCommand(newOrdersDispatchCommand(rootOpts))

	return cmd
}

func newOrdersListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List orders with their latest status",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			orders, err := app.Orders.List(cmd.Context())
			if err != nil {
				return err
			}

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			if f.Format == "json" {
				return f.Success(orders)
			}

			if len(orders) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no orders")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCUSTOMER\tTOTAL\tSTATUS\tCREATED")
			for _, o := range orders {
				created := time.UnixMilli(o.CreatedAt).UTC().Format(time.RFC3339)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", o.ID, o.Customer.Name, o.Totals.GrandTotal.Format(), o.Status, created)
			}
			return w.Flush()
		},
	}
}

func newOrdersShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <order-id>",
		Short:         "Show one order, including its line snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			o, err := app.Orders.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			if f.Format == "json" {
				return f.Success(o)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Order %s (%s)\n", o.ID, o.Status)
			fmt.Fprintf(out, "Customer: %s, %s, %s\n", o.Customer.Name, o.Customer.Phone, o.Customer.Address)
			fmt.Fprintf(out, "Created:  %s\n\n", time.UnixMilli(o.CreatedAt).UTC().Format(time.RFC3339))
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PRODUCT\tVARIANT\tQTY\tUNIT\tLINE TOTAL")
			for _, l := range o.Lines {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					l.ProductName, l.Variant, l.Quantity, l.FinalUnit().Format(), l.FinalUnit().Mul(l.Quantity).Format())
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nTotal: %s\n", o.Totals.GrandTotal.Format())
			return nil
		},
	}
}

func newOrdersDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch <order-id>",
		Short: "Open the handoff channel for a pending or failed order",
		Long: `Open the WhatsApp handoff for an order that is pending or whose previous
dispatch failed. An order that already dispatched successfully is never
sent twice.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			o, err := app.Orders.Dispatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			return f.Successf(o, "order %s dispatched, total %s", o.ID, o.Totals.GrandTotal.Format())
		},
	}
}
