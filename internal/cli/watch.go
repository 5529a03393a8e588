package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/vitrina/internal/cart"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run a long-lived replica that follows other replicas' writes",
		Long: `Keep a replica alive: poll the shared store for writes made by other
processes, merge catalog changes, and drop cart lines whose products were
removed elsewhere. Stops on SIGINT or SIGTERM.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()

			// The catalog callback runs on the poll goroutine, so keep it
			// short: revalidate the cart and report what changed.
			unsubscribe := app.Catalog.Subscribe(func() {
				removed, err := app.Cart.Revalidate(ctx)
				if err != nil {
					fmt.Fprintf(out, "cart revalidation failed: %v\n", err)
					return
				}
				fmt.Fprintf(out, "catalog changed: %d products\n", len(app.Catalog.Snapshot()))
				for _, key := range removed {
					fmt.Fprintf(out, "dropped cart line %s: product no longer in catalog\n", lineKeyString(key))
				}
			})
			defer unsubscribe()

			go app.Store.Watch(ctx, app.Config.Sync.PollInterval.Std())

			fmt.Fprintf(out, "watching %s (poll %s, sweep %s); ctrl-c to stop\n",
				app.Config.StorePath, app.Config.Sync.PollInterval.Std(), app.Config.Sync.SweepInterval.Std())

			app.Catalog.Run(ctx)
			return nil
		},
	}
}

func lineKeyString(key cart.Key) string {
	if key.Variant == "" {
		return key.ProductID
	}
	return key.ProductID + " (" + key.Variant + ")"
}
