package catalog

import "sort"

// Reconcile merges two record sets into one converged set.
//
// For each id present in either set the record with the larger ModifiedAt
// wins; ties prefer the incoming record so replicas converge faster. The
// result depends only on (id, ModifiedAt) pairs, never on arrival order:
// reconciling A then B yields the same set as B then A.
//
// Both inputs are read-only; the result is a fresh slice sorted by id.
func Reconcile(local, incoming []Record) []Record {
	merged := make(map[string]Record, len(local)+len(incoming))
	for _, r := range local {
		merged[r.ID] = r
	}
	for _, r := range incoming {
		prev, ok := merged[r.ID]
		if !ok || r.ModifiedAt >= prev.ModifiedAt {
			merged[r.ID] = r
		}
	}

	out := make([]Record, 0, len(merged))
	for _, r := range merged {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// equalSets reports whether two id-sorted record sets are identical.
// Used to suppress republishing when a reconcile cycle changed nothing.
func equalSets(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
