package store

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Origin identifies which side of the store produced a change event.
type Origin string

const (
	// OriginLocal marks a write made through this Store instance.
	OriginLocal Origin = "local"

	// OriginRemote marks a write observed from another replica process.
	OriginRemote Origin = "remote"
)

// Event describes one observed write to a store key.
//
// Events carry no payload: delivery is at-least-once and signals may
// coalesce, so consumers must re-read the key and reconcile.
type Event struct {
	Key    string
	Origin Origin
}

// Subscribe registers a callback for change events and returns a cancel
// function. The callback runs on the writer's goroutine for local events and
// on the Watch goroutine for remote events; it must not block.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// notify delivers an event to all subscribers. Subscribers are copied under
// the lock and invoked outside it so a callback may call back into the store.
func (s *Store) notify(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Watch polls for writes made by other replica processes and publishes them
// as OriginRemote events until the context is cancelled.
//
// Polling is the only cross-process signal SQLite offers; the interval
// bounds staleness, and consumers' periodic sweeps backstop any poll the
// process sleeps through.
func (s *Store) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.poll(ctx); err != nil {
				// Degrade to the next tick; a missed poll is recoverable.
				slog.Warn("store watch poll failed", "error", err)
			}
		}
	}
}

// poll diffs per-key versions against the last observed baseline and
// notifies subscribers of keys changed elsewhere.
func (s *Store) poll(ctx context.Context) error {
	dataVersion, err := s.readDataVersion(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	unchanged := dataVersion == s.dataVersion
	s.dataVersion = dataVersion
	s.mu.Unlock()

	if unchanged {
		return nil
	}

	versions, err := s.readVersions(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	var changed []string
	for key, version := range versions {
		if version != s.keyVersions[key] {
			changed = append(changed, key)
		}
	}
	s.keyVersions = versions
	s.mu.Unlock()

	sort.Strings(changed)
	for _, key := range changed {
		s.notify(Event{Key: key, Origin: OriginRemote})
	}
	return nil
}
