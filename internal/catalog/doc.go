// Package catalog owns the product catalog and its convergence across
// replicas.
//
// Every replica reads and writes the same persisted record set; none is
// authoritative. Conflicts are resolved with a last-writer-wins rule keyed on
// each record's logical modification timestamp, ties preferring the incoming
// record. The rule depends only on (id, modifiedAt) pairs, so merges are
// commutative and every replica converges to the same set regardless of the
// order updates arrive in.
//
// Deletions are tombstones: a delete is a write that stamps DeletedAt and
// bumps ModifiedAt, and it converges through the same merge rule as an edit.
//
// # Failure semantics
//
// A malformed persisted payload is treated as "no update", never as "empty
// catalog". The replicator logs and retains its last known good state; the
// periodic sweep retries on the next cycle.
package catalog
