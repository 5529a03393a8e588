package cli

import (
	"context"
	"fmt"

	"github.com/roach88/vitrina/internal/cart"
	"github.com/roach88/vitrina/internal/catalog"
	"github.com/roach88/vitrina/internal/config"
	"github.com/roach88/vitrina/internal/money"
	"github.com/roach88/vitrina/internal/order"
	"github.com/roach88/vitrina/internal/store"
)

// App wires one replica's components together: store, catalog replicator,
// cart engine, order machine. Built once per invocation and passed to the
// command implementations; nothing here is a package-level singleton.
type App struct {
	Config  config.Config
	Store   *store.Store
	Catalog *catalog.Replicator
	Cart    *cart.Engine
	Orders  *order.Machine
}

// newApp loads configuration and constructs the replica.
func newApp(ctx context.Context, opts *RootOptions) (*App, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.Store != "" {
		cfg.StorePath = opts.Store
	}
	setupLogging(opts.Verbose, cfg.Log.Level)

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}

	rep := catalog.NewReplicator(st, catalog.NewClock(), cfg.Sync.SweepInterval.Std())
	rep.Load(ctx)

	margin, err := money.PercentFromFloat(cfg.Cart.DefaultMarginPercent)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "invalid default margin", err)
	}

	engine := cart.NewEngine(st, rep, cart.Config{
		MaxQuantityPerLine: cfg.Cart.MaxQuantityPerLine,
		MaxLines:           cfg.Cart.MaxLines,
		DefaultMargin:      margin,
	})
	if err := engine.Load(ctx); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "load cart", err)
	}

	app := &App{
		Config:  cfg,
		Store:   st,
		Catalog: rep,
		Cart:    engine,
		Orders:  order.NewMachine(engine, st, newChannel(cfg)),
	}
	return app, nil
}

// Close releases the replica's resources.
func (a *App) Close() error {
	return a.Store.Close()
}

// newChannel builds the handoff channel, or a placeholder that fails with
// a configuration hint when no fulfillment number is set. Submitting still
// works without one; only dispatch needs the channel.
func newChannel(cfg config.Config) order.Channel {
	if cfg.WhatsAppPhone == "" {
		return unconfiguredChannel{}
	}
	ch, err := order.NewWhatsApp(cfg.WhatsAppPhone)
	if err != nil {
		return errChannel{err: err}
	}
	return ch
}

type unconfiguredChannel struct{}

func (unconfiguredChannel) Open(string) error {
	return fmt.Errorf("whatsappPhone is not configured; set it in the config file or VITRINA_PHONE")
}

type errChannel struct{ err error }

func (c errChannel) Open(string) error { return c.err }
