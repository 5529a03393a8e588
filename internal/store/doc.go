// Package store provides the SQLite-backed persisted store shared by all
// storefront replicas.
//
// The store is a key-value table holding the serialized catalog, the local
// cart, and an append-only order log. Every write bumps a per-key version so
// any replica can tell which keys changed since it last looked.
//
// # Change feed
//
// Two producers feed one subscriber set:
//   - local writes notify subscribers synchronously after the commit
//   - Watch polls PRAGMA data_version and diffs per-key versions to surface
//     writes made by other replica processes
//
// Subscribers receive at-least-once delivery; consumers are expected to
// re-read and reconcile rather than trust event payloads.
//
// # Database configuration
//
//   - WAL mode: concurrent reads across replica processes during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
