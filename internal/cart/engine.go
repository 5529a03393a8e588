package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/vitrina/internal/catalog"
	"github.com/roach88/vitrina/internal/money"
	"github.com/roach88/vitrina/internal/store"
)

// CatalogView is the read-only catalog access the engine needs to validate
// product existence. Satisfied by *catalog.Replicator.
type CatalogView interface {
	Lookup(id string) (catalog.Record, bool)
}

// Config bounds the cart and sets pricing defaults.
type Config struct {
	// MaxQuantityPerLine caps the quantity of any single line.
	MaxQuantityPerLine int

	// MaxLines caps the number of distinct (product, variant) lines.
	MaxLines int

	// DefaultMargin is applied when AddItem is called without a margin.
	DefaultMargin money.Percent
}

const (
	defaultMaxQuantityPerLine = 10
	defaultMaxLines           = 50
	defaultMargin             = money.Percent(2000) // 20%
)

func (c Config) withDefaults() Config {
	if c.MaxQuantityPerLine <= 0 {
		c.MaxQuantityPerLine = defaultMaxQuantityPerLine
	}
	if c.MaxLines <= 0 {
		c.MaxLines = defaultMaxLines
	}
	if c.DefaultMargin <= 0 {
		c.DefaultMargin = defaultMargin
	}
	return c
}

// Engine maintains the cart and its derived totals under the capacity
// invariants. One instance per replica; cart state is not replicated.
//
// Mutations are all-or-nothing: limits are checked before anything changes,
// and in-memory state plus totals are updated before the method returns, so
// a caller reading totals right after a mutation never sees stale data.
type Engine struct {
	store   *store.Store
	catalog CatalogView
	cfg     Config
	now     func() int64

	mu      sync.Mutex
	lines   []Line
	subs    map[int]func()
	nextSub int
}

// NewEngine creates an engine over the given store and catalog view.
func NewEngine(st *store.Store, view CatalogView, cfg Config) *Engine {
	return &Engine{
		store:   st,
		catalog: view,
		cfg:     cfg.withDefaults(),
		now:     func() int64 { return time.Now().UnixMilli() },
		subs:    make(map[int]func()),
	}
}

// Load restores the persisted cart. A missing key is an empty cart; a
// corrupt payload is a PersistenceError the caller must surface, since
// silently starting empty would lose the user's cart.
func (e *Engine) Load(ctx context.Context) error {
	raw, ok, err := e.store.Read(ctx, StoreKey)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	lines, err := unmarshalLines(raw)
	if err != nil {
		return &store.PersistenceError{Op: "load", Key: StoreKey, Err: err}
	}

	e.mu.Lock()
	e.lines = lines
	e.mu.Unlock()
	return nil
}

// AddItem adds quantity of a (product, variant) selection to the cart.
//
// If the key already exists the quantities are summed and re-checked against
// the per-line limit; exceeding it fails the whole operation and leaves the
// existing line untouched. margin == nil applies the configured default; an
// existing line keeps its original margin and price snapshot.
func (e *Engine) AddItem(ctx context.Context, productID, variant string, quantity int, margin *money.Percent) error {
	if quantity < 1 || quantity > e.cfg.MaxQuantityPerLine {
		return &CapacityError{Scope: ScopeLineQuantity, Limit: e.cfg.MaxQuantityPerLine, Requested: quantity}
	}

	rec, ok := e.catalog.Lookup(productID)
	if !ok {
		return &NotFoundError{ProductID: productID}
	}

	variant = NormalizeVariant(variant)

	return e.mutate(ctx, func() ([]Line, error) {
		key := Key{ProductID: productID, Variant: variant}
		if i := e.indexOf(key); i >= 0 {
			merged := e.lines[i].Quantity + quantity
			if merged > e.cfg.MaxQuantityPerLine {
				return nil, &CapacityError{Scope: ScopeLineQuantity, Limit: e.cfg.MaxQuantityPerLine, Requested: merged}
			}
			next := e.copyLines()
			next[i].Quantity = merged
			return next, nil
		}

		if len(e.lines)+1 > e.cfg.MaxLines {
			return nil, &CapacityError{Scope: ScopeLineCount, Limit: e.cfg.MaxLines, Requested: len(e.lines) + 1}
		}

		m := e.cfg.DefaultMargin
		if margin != nil {
			m = *margin
		}
		return append(e.copyLines(), Line{
			ProductID:     productID,
			ProductName:   rec.Name,
			Variant:       variant,
			Quantity:      quantity,
			Margin:        m,
			WholesaleUnit: rec.UnitPrice,
			AddedAt:       e.now(),
		}), nil
	})
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero
// or less removes the line; exceeding the per-line limit fails with a
// CapacityError and leaves state unchanged.
func (e *Engine) UpdateQuantity(ctx context.Context, productID, variant string, quantity int) error {
	variant = NormalizeVariant(variant)

	if quantity <= 0 {
		return e.RemoveItem(ctx, productID, variant)
	}
	if quantity > e.cfg.MaxQuantityPerLine {
		return &CapacityError{Scope: ScopeLineQuantity, Limit: e.cfg.MaxQuantityPerLine, Requested: quantity}
	}

	return e.mutate(ctx, func() ([]Line, error) {
		i := e.indexOf(Key{ProductID: productID, Variant: variant})
		if i < 0 {
			return nil, &NotFoundError{ProductID: productID, Variant: variant}
		}
		next := e.copyLines()
		next[i].Quantity = quantity
		return next, nil
	})
}

// RemoveItem removes a line. Idempotent: removing an absent key is a no-op,
// not an error.
func (e *Engine) RemoveItem(ctx context.Context, productID, variant string) error {
	variant = NormalizeVariant(variant)

	return e.mutate(ctx, func() ([]Line, error) {
		i := e.indexOf(Key{ProductID: productID, Variant: variant})
		if i < 0 {
			return nil, nil // absent key: no-op
		}
		return append(e.copyLines()[:i:i], e.lines[i+1:]...), nil
	})
}

// Clear empties the cart unconditionally. Used by the order machine on
// confirmed dispatch, or explicitly by the user.
func (e *Engine) Clear(ctx context.Context) error {
	return e.mutate(ctx, func() ([]Line, error) {
		return []Line{}, nil
	})
}

// Revalidate drops lines whose product no longer exists in the converged
// catalog (deleted elsewhere and tombstoned here). Returns the removed keys.
// Lines with live products are untouched; price drift never invalidates a
// line because the wholesale price is an add-time snapshot.
func (e *Engine) Revalidate(ctx context.Context) ([]Key, error) {
	var removed []Key
	err := e.mutate(ctx, func() ([]Line, error) {
		removed = removed[:0]
		next := make([]Line, 0, len(e.lines))
		for _, l := range e.lines {
			if _, ok := e.catalog.Lookup(l.ProductID); ok {
				next = append(next, l)
			} else {
				removed = append(removed, l.Key())
			}
		}
		if len(removed) == 0 {
			return nil, nil
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Totals recomputes the cart's aggregates from the current lines.
func (e *Engine) Totals() Totals {
	e.mu.Lock()
	defer e.mu.Unlock()

	return ComputeTotals(e.lines)
}

// Lines returns a copy of the cart lines in insertion order.
func (e *Engine) Lines() []Line {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.copyLines()
}

// Subscribe registers a callback fired after every successful mutation.
// Callbacks run on the mutating goroutine without the engine lock held, so
// they may read the engine freely.
func (e *Engine) Subscribe(fn func()) (cancel func()) {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// mutate runs build under the lock, persists the returned line list, swaps
// it in, and notifies subscribers after releasing the lock. A nil list from
// build means "no change" and skips both the write and the notification.
// The persisted payload is always the complete list, never a delta.
func (e *Engine) mutate(ctx context.Context, build func() ([]Line, error)) error {
	e.mu.Lock()

	next, err := build()
	if err != nil || next == nil {
		e.mu.Unlock()
		return err
	}

	raw, err := marshalLines(next)
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("cart commit: %w", err)
	}
	if err := e.store.Write(ctx, StoreKey, raw); err != nil {
		e.mu.Unlock()
		return err
	}

	e.lines = next
	fns := make([]func(), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

func (e *Engine) indexOf(key Key) int {
	for i, l := range e.lines {
		if l.Key() == key {
			return i
		}
	}
	return -1
}

func (e *Engine) copyLines() []Line {
	out := make([]Line, len(e.lines))
	copy(out, e.lines)
	return out
}
