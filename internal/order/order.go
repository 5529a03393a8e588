package order

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/vitrina/internal/cart"
)

// StoreKey is the append-only persisted-store key holding the order log.
const StoreKey = "orders"

// Status is an order's lifecycle state.
type Status string

const (
	// StatusPendingDispatch means the snapshot is taken and a handoff
	// attempt is in flight or due.
	StatusPendingDispatch Status = "pendingDispatch"

	// StatusDispatched means the handoff channel reported success.
	StatusDispatched Status = "dispatched"

	// StatusDispatchFailed means the handoff failed; the order may be
	// retried under the same id.
	StatusDispatchFailed Status = "dispatchFailed"
)

// IsTerminal reports whether the status ends the order's lifecycle.
// Only success is terminal; a failed dispatch can re-enter pendingDispatch.
func (s Status) IsTerminal() bool {
	return s == StatusDispatched
}

// String representation (for logging)
func (s Status) String() string {
	return string(s)
}

// Customer is the fulfillment contact. All fields are required.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// validate returns a ValidationError naming the first empty field.
func (c Customer) validate() error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return &ValidationError{Field: "name", Reason: "customer name is required"}
	case strings.TrimSpace(c.Phone) == "":
		return &ValidationError{Field: "phone", Reason: "customer phone is required"}
	case strings.TrimSpace(c.Address) == "":
		return &ValidationError{Field: "address", Reason: "customer address is required"}
	}
	return nil
}

// Order is an immutable cart snapshot plus a mutable lifecycle status.
//
// Lines and Totals are deep copies taken at submission; later catalog or
// cart changes never affect them.
type Order struct {
	ID           string      `json:"id"`
	Customer     Customer    `json:"customer"`
	Lines        []cart.Line `json:"lineItemsSnapshot"`
	Totals       cart.Totals `json:"totals"`
	Status       Status      `json:"status"`
	CreatedAt    int64       `json:"createdAt"`
	DispatchedAt int64       `json:"dispatchedAt,omitempty"`
}

// marshalEntry serializes one order log entry (a single JSON line).
func marshalEntry(o Order) (string, error) {
	raw, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("marshal order %s: %w", o.ID, err)
	}
	return string(raw), nil
}

// foldLog parses an order log and returns the latest entry per id, ordered
// by creation time then id for determinism.
func foldLog(raw string) ([]Order, error) {
	latest := make(map[string]Order)
	for i, line := range strings.Split(raw, "\n") {
		if line == "" {
			continue
		}
		var o Order
		if err := json.Unmarshal([]byte(line), &o); err != nil {
			return nil, fmt.Errorf("order log entry %d: %w", i, err)
		}
		if o.ID == "" {
			return nil, fmt.Errorf("order log entry %d: missing id", i)
		}
		latest[o.ID] = o
	}

	out := make([]Order, 0, len(latest))
	for _, o := range latest {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
