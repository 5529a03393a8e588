package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/vitrina/internal/order"
)

type checkoutOptions struct {
	Name       string
	Phone      string
	Address    string
	NoDispatch bool
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &checkoutOptions{}

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Snapshot the cart into an order and hand it off",
		Long: `Snapshot the current cart into an order and dispatch it through the
configured WhatsApp channel. The cart is cleared only after the handoff
succeeds; a failed handoff keeps both the order (marked failed, retryable
via "orders dispatch") and the cart.

Example:
  vitrina checkout --name "María Pérez" --phone "+57 300 123 4567" --address "Calle 10 #4-21"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			o, err := app.Orders.Submit(cmd.Context(), order.Customer{
				Name:    opts.Name,
				Phone:   opts.Phone,
				Address: opts.Address,
			})
			if err != nil {
				return err
			}

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			if opts.NoDispatch {
				return f.Successf(o, "order %s created (%s), dispatch it with: vitrina orders dispatch %s",
					o.ID, o.Totals.GrandTotal.Format(), o.ID)
			}

			dispatched, err := app.Orders.Dispatch(cmd.Context(), o.ID)
			if err != nil {
				// The order survives a failed handoff; tell the user how to retry.
				return WrapExitError(ExitFailure,
					"order "+o.ID+" saved but not dispatched; retry with: vitrina orders dispatch "+o.ID, err)
			}
			return f.Successf(dispatched, "order %s dispatched, total %s", dispatched.ID, dispatched.Totals.GrandTotal.Format())
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "customer name")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "customer phone")
	cmd.Flags().StringVar(&opts.Address, "address", "", "delivery address")
	cmd.Flags().BoolVar(&opts.NoDispatch, "no-dispatch", false, "create the order without opening the handoff channel")
	cobra.CheckErr(cmd.MarkFlagRequired("name"))
	cobra.CheckErr(cmd.MarkFlagRequired("phone"))
	cobra.CheckErr(cmd.MarkFlagRequired("address"))

	return cmd
}
