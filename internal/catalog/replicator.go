package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/vitrina/internal/store"
)

// Replicator converges the catalog view across replicas.
//
// Three producers drive one merge path:
//   - local administrative writes (Put, Delete), merged before the store
//     write returns so self-edits are visible with zero latency
//   - remote change-feed events from the persisted store
//   - a periodic sweep that re-reads the store unconditionally, a
//     correctness backstop against missed or coalesced change signals
//
// The remote event path and the sweep both funnel into refresh, so there is
// exactly one reconciliation code path.
type Replicator struct {
	store *store.Store
	clock *Clock
	sweep time.Duration

	mu      sync.RWMutex
	records []Record // converged set, sorted by id, tombstones included
	subs    map[int]func()
	nextSub int
}

// defaultSweep bounds staleness when no sweep interval is configured.
const defaultSweep = 30 * time.Second

// NewReplicator creates a replicator over the given store. sweep is the
// periodic reconciliation interval; non-positive values fall back to a
// default.
func NewReplicator(st *store.Store, clock *Clock, sweep time.Duration) *Replicator {
	if sweep <= 0 {
		sweep = defaultSweep
	}
	return &Replicator{
		store: st,
		clock: clock,
		sweep: sweep,
		subs:  make(map[int]func()),
	}
}

// Load primes the view from the persisted store. A missing key is an empty
// catalog; a malformed payload is logged and treated as no update, so the
// replica starts from its prior (empty) state rather than corrupting itself.
func (r *Replicator) Load(ctx context.Context) {
	r.refresh(ctx)
}

// Run subscribes to the store change feed and runs the periodic sweep until
// the context is cancelled. Call after Load.
func (r *Replicator) Run(ctx context.Context) {
	cancel := r.store.Subscribe(func(ev store.Event) {
		if ev.Key == StoreKey && ev.Origin == store.OriginRemote {
			r.refresh(ctx)
		}
	})
	defer cancel()

	ticker := time.NewTicker(r.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// refresh re-reads the persisted record set and reconciles it into the local
// view. All failures degrade to "no update for this cycle": the last known
// good state is retained and the next signal or sweep retries.
func (r *Replicator) refresh(ctx context.Context) {
	raw, ok, err := r.store.Read(ctx, StoreKey)
	if err != nil {
		slog.Warn("catalog refresh: store read failed", "error", err)
		return
	}
	if !ok {
		return // never written; nothing to merge
	}

	incoming, err := Unmarshal(raw)
	if err != nil {
		// A partially-written foreign payload must never corrupt the view.
		slog.Warn("catalog refresh: malformed payload ignored", "error", err)
		return
	}

	var changed bool
	r.mu.Lock()
	merged := Reconcile(r.records, incoming)
	if !equalSets(r.records, merged) {
		r.records = merged
		changed = true
	}
	r.mu.Unlock()

	// Keep local timestamps ahead of everything merged in.
	for _, rec := range incoming {
		r.clock.Observe(rec.ModifiedAt)
	}

	if changed {
		r.publish()
	}
}

// Put creates or edits a product locally, stamps its modification timestamp,
// merges it into the view, and persists the converged set. The merged view
// is published before the method returns.
func (r *Replicator) Put(ctx context.Context, rec Record) (Record, error) {
	rec.ModifiedAt = r.clock.Next()
	rec.DeletedAt = 0
	if err := rec.validate(); err != nil {
		return Record{}, fmt.Errorf("put product: %w", err)
	}

	if err := r.applyLocal(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Delete tombstones a product locally. Deleting an unknown id is a no-op.
// The tombstone converges through the same merge rule as an edit.
func (r *Replicator) Delete(ctx context.Context, id string) error {
	r.mu.RLock()
	rec, ok := lookup(r.records, id)
	r.mu.RUnlock()
	if !ok || rec.Deleted() {
		return nil
	}

	now := r.clock.Next()
	rec.ModifiedAt = now
	rec.DeletedAt = now
	return r.applyLocal(ctx, rec)
}

// applyLocal merges one locally written record and persists the full
// converged set. Writes are all-or-nothing: the whole record set is
// serialized in one store write.
func (r *Replicator) applyLocal(ctx context.Context, rec Record) error {
	r.mu.Lock()
	r.records = Reconcile(r.records, []Record{rec})
	snapshot := make([]Record, len(r.records))
	copy(snapshot, r.records)
	r.mu.Unlock()

	raw, err := Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := r.store.Write(ctx, StoreKey, raw); err != nil {
		return err
	}

	r.publish()
	return nil
}

// Snapshot returns the current converged catalog: live records only, sorted
// by id, deep-copied so callers cannot mutate the view.
func (r *Replicator) Snapshot() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if !rec.Deleted() {
			out = append(out, rec)
		}
	}
	return out
}

// Lookup returns a live record by id.
func (r *Replicator) Lookup(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := lookup(r.records, id)
	if !ok || rec.Deleted() {
		return Record{}, false
	}
	return rec, true
}

// Subscribe registers a callback fired after every published view change.
// Callbacks read the new view via Snapshot; they must not block.
func (r *Replicator) Subscribe(fn func()) (cancel func()) {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// publish notifies subscribers outside the lock.
func (r *Replicator) publish() {
	r.mu.RLock()
	fns := make([]func(), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

func lookup(records []Record, id string) (Record, bool) {
	for _, rec := range records {
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}
