package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/vitrina/internal/money"
)

// StoreKey is the persisted-store key holding the serialized catalog.
const StoreKey = "catalog"

// payloadVersion is the persisted envelope schema version.
const payloadVersion = 1

// Record is one catalog product as every replica sees it.
//
// ModifiedAt is a logical millisecond timestamp stamped on every write; it
// drives the last-writer-wins merge. DeletedAt is zero for live records and
// set to the deletion timestamp for tombstones.
type Record struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	UnitPrice  money.Amount `json:"unitPrice"`
	Stock      int          `json:"stock"`
	Category   string       `json:"category"`
	ModifiedAt int64        `json:"modifiedAt"`
	DeletedAt  int64        `json:"deletedAt,omitempty"`
}

// Deleted reports whether the record is a tombstone.
func (r Record) Deleted() bool {
	return r.DeletedAt != 0
}

// validate checks the invariants required of any record crossing the
// persistence boundary. Parse, don't trust: a record set written by another
// replica is input, not state.
func (r Record) validate() error {
	if r.ID == "" {
		return fmt.Errorf("record missing id")
	}
	if r.Name == "" && !r.Deleted() {
		return fmt.Errorf("record %q missing name", r.ID)
	}
	if r.UnitPrice < 0 {
		return fmt.Errorf("record %q has negative unit price %d", r.ID, r.UnitPrice)
	}
	if r.Stock < 0 {
		return fmt.Errorf("record %q has negative stock %d", r.ID, r.Stock)
	}
	if r.ModifiedAt <= 0 {
		return fmt.Errorf("record %q has invalid modifiedAt %d", r.ID, r.ModifiedAt)
	}
	return nil
}

// payload is the persisted JSON envelope. An explicit version field keeps a
// partially-written or foreign payload from masquerading as a valid empty
// catalog.
type payload struct {
	Version int      `json:"version"`
	Records []Record `json:"records"`
}

// Marshal serializes a record set for the persisted store.
func Marshal(records []Record) (string, error) {
	raw, err := json.Marshal(payload{Version: payloadVersion, Records: records})
	if err != nil {
		return "", fmt.Errorf("marshal catalog: %w", err)
	}
	return string(raw), nil
}

// Unmarshal parses and validates a persisted record set.
//
// Any malformed record fails the whole payload: replication must treat it as
// "no update", and a half-validated set would defeat that.
func Unmarshal(raw string) ([]Record, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	if p.Version != payloadVersion {
		return nil, fmt.Errorf("unsupported catalog payload version %d", p.Version)
	}

	seen := make(map[string]bool, len(p.Records))
	for _, r := range p.Records {
		if err := r.validate(); err != nil {
			return nil, err
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("duplicate record id %q", r.ID)
		}
		seen[r.ID] = true
	}

	if p.Records == nil {
		p.Records = []Record{}
	}
	return p.Records, nil
}
