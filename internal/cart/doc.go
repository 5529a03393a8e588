// Package cart implements the pricing engine for one replica's shopping
// cart.
//
// Lines are keyed by (product id, variant); adding an existing key sums
// quantities instead of duplicating a row. Each line snapshots the wholesale
// unit price at add time, so later catalog edits never reprice a cart.
// Totals are recomputed from the line list on every call - there is no
// cached aggregate that can drift.
//
// Cart state is local to the replica by design; only the catalog is
// replicated. Every mutation persists the full line list before returning,
// and mutations that would violate a capacity limit fail before any state
// changes.
package cart
