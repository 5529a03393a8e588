package order

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/vitrina/internal/cart"
	"github.com/roach88/vitrina/internal/store"
)

// Machine drives the order lifecycle:
//
//	submit -> pendingDispatch -> dispatched
//	                          -> dispatchFailed -> (retry) pendingDispatch
//
// Orders are never deleted, only status-transitioned; every transition is
// appended to the persisted log.
type Machine struct {
	cart    *cart.Engine
	store   *store.Store
	channel Channel
	now     func() time.Time
	newID   func() string
}

// NewMachine creates a machine over the given cart engine, store, and
// handoff channel.
func NewMachine(engine *cart.Engine, st *store.Store, channel Channel) *Machine {
	return &Machine{
		cart:    engine,
		store:   st,
		channel: channel,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Submit validates the customer, snapshots the cart, and persists a new
// order in pendingDispatch. The snapshot is taken exactly once, here; the
// live cart is not modified.
func (m *Machine) Submit(ctx context.Context, customer Customer) (Order, error) {
	if err := customer.validate(); err != nil {
		return Order{}, err
	}

	lines := m.cart.Lines() // already a deep copy; Line has no reference fields
	if len(lines) == 0 {
		return Order{}, &ValidationError{Field: "cart", Reason: "cart is empty"}
	}

	o := Order{
		ID:        m.newID(),
		Customer:  customer,
		Lines:     lines,
		Totals:    cart.ComputeTotals(lines),
		Status:    StatusPendingDispatch,
		CreatedAt: m.now().UnixMilli(),
	}

	if err := m.append(ctx, o); err != nil {
		return Order{}, err
	}

	slog.Info("order submitted", "order_id", o.ID, "lines", len(o.Lines), "total", int64(o.Totals.GrandTotal))
	return o, nil
}

// Dispatch hands the order to the external channel.
//
// Success persists the order as dispatched, stamps DispatchedAt, and clears
// the cart. Failure persists dispatchFailed and returns a DispatchError; the
// cart is NOT cleared, so the user can retry the same order id. Retrying an
// already-dispatched order returns AlreadyDispatchedError without invoking
// the channel again.
func (m *Machine) Dispatch(ctx context.Context, orderID string) (Order, error) {
	o, err := m.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}

	if o.Status == StatusDispatched {
		return o, &AlreadyDispatchedError{OrderID: o.ID}
	}

	if o.Status == StatusDispatchFailed {
		// A retry re-enters pendingDispatch under the same id, so the log
		// records every attempt.
		o.Status = StatusPendingDispatch
		if err := m.append(ctx, o); err != nil {
			return Order{}, err
		}
	}

	if err := m.channel.Open(BuildMessage(o)); err != nil {
		o.Status = StatusDispatchFailed
		if perr := m.append(ctx, o); perr != nil {
			return Order{}, perr
		}
		slog.Warn("order dispatch failed", "order_id", o.ID, "error", err)
		return o, &DispatchError{OrderID: o.ID, Err: err}
	}

	o.Status = StatusDispatched
	o.DispatchedAt = m.now().UnixMilli()
	if err := m.append(ctx, o); err != nil {
		return Order{}, err
	}

	// Only a confirmed handoff clears the cart.
	if err := m.cart.Clear(ctx); err != nil {
		return o, fmt.Errorf("order %s dispatched but cart not cleared: %w", o.ID, err)
	}

	slog.Info("order dispatched", "order_id", o.ID)
	return o, nil
}

// Get returns the latest persisted state of one order.
func (m *Machine) Get(ctx context.Context, orderID string) (Order, error) {
	orders, err := m.List(ctx)
	if err != nil {
		return Order{}, err
	}
	for _, o := range orders {
		if o.ID == orderID {
			return o, nil
		}
	}
	return Order{}, &NotFoundError{OrderID: orderID}
}

// List returns the latest state of every persisted order, oldest first.
func (m *Machine) List(ctx context.Context) ([]Order, error) {
	raw, ok, err := m.store.Read(ctx, StoreKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Order{}, nil
	}

	orders, err := foldLog(raw)
	if err != nil {
		return nil, &store.PersistenceError{Op: "fold", Key: StoreKey, Err: err}
	}
	return orders, nil
}

// append writes one order log entry.
func (m *Machine) append(ctx context.Context, o Order) error {
	entry, err := marshalEntry(o)
	if err != nil {
		return err
	}
	return m.store.Append(ctx, StoreKey, entry)
}
