// Package order converts a mutable cart into an immutable, dispatched order
// exactly once.
//
// Submit snapshots the cart's lines and totals into a new order; the
// snapshot is taken once and never recomputed from the possibly-changed
// cart. Dispatch hands the formatted order to the external fulfillment
// channel: on success the order becomes dispatched and the cart is cleared,
// on failure the cart is left intact so nothing is lost and the same order
// id can be retried.
//
// There is no server to guarantee delivery, so the contract is "the cart is
// only cleared if the handoff channel reports success" - duplicate dispatch
// attempts are possible, silently losing an order is not.
//
// Orders are persisted as JSON lines appended to one store key. The key is
// append-only: a status transition appends a new entry for the same id, and
// reads fold the log with last-entry-wins.
package order
