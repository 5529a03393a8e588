package cart

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/vitrina/internal/money"
)

// StoreKey is the persisted-store key holding this replica's cart.
const StoreKey = "cart"

// payloadVersion is the persisted envelope schema version.
const payloadVersion = 1

// Line is one product-variant selection in the cart.
type Line struct {
	ProductID string `json:"productId"`

	// ProductName is copied from the catalog at add time, like the
	// wholesale price, so a later catalog edit never rewrites an order
	// snapshot built from this line.
	ProductName string `json:"productName"`

	// Variant distinguishes selections of the same product (e.g. size).
	// Stored NFC-normalized and trimmed; empty is allowed.
	Variant string `json:"variant"`

	Quantity int `json:"quantity"`

	// Margin is the profit percentage applied on top of the wholesale
	// price, in basis points.
	Margin money.Percent `json:"marginBasisPoints"`

	// WholesaleUnit is the unit price copied from the catalog at add time.
	// A snapshot, not a live reference.
	WholesaleUnit money.Amount `json:"wholesaleUnitPrice"`

	AddedAt int64 `json:"addedAt"`
}

// FinalUnit is the customer-facing unit price: wholesale plus margin.
func (l Line) FinalUnit() money.Amount {
	return l.WholesaleUnit.ApplyMargin(l.Margin)
}

// Key identifies a line within the cart.
type Key struct {
	ProductID string
	Variant   string
}

// Key returns the line's identity key.
func (l Line) Key() Key {
	return Key{ProductID: l.ProductID, Variant: l.Variant}
}

// NormalizeVariant canonicalizes a variant string so visually identical
// variants map to one line key.
func NormalizeVariant(variant string) string {
	return norm.NFC.String(strings.TrimSpace(variant))
}

// Totals are the cart's derived monetary aggregates.
type Totals struct {
	SubtotalWholesale money.Amount `json:"subtotalWholesale"`
	ProfitTotal       money.Amount `json:"profitTotal"`
	GrandTotal        money.Amount `json:"grandTotal"`
	LineCount         int          `json:"lineCount"`
	UnitCount         int          `json:"unitCount"`
}

// ComputeTotals derives totals from a line list. Pure: totals are always a
// function of the lines, so GrandTotal == SubtotalWholesale + ProfitTotal
// holds by construction.
func ComputeTotals(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		wholesale := l.WholesaleUnit.Mul(l.Quantity)
		profit := (l.FinalUnit() - l.WholesaleUnit).Mul(l.Quantity)
		t.SubtotalWholesale += wholesale
		t.ProfitTotal += profit
		t.UnitCount += l.Quantity
	}
	t.GrandTotal = t.SubtotalWholesale + t.ProfitTotal
	t.LineCount = len(lines)
	return t
}

// payload is the persisted JSON envelope for the cart line list.
type payload struct {
	Version int    `json:"version"`
	Lines   []Line `json:"lines"`
}

// marshalLines serializes the full line list for the persisted store.
func marshalLines(lines []Line) (string, error) {
	raw, err := json.Marshal(payload{Version: payloadVersion, Lines: lines})
	if err != nil {
		return "", fmt.Errorf("marshal cart: %w", err)
	}
	return string(raw), nil
}

// unmarshalLines parses and validates a persisted line list.
func unmarshalLines(raw string) ([]Line, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	if p.Version != payloadVersion {
		return nil, fmt.Errorf("unsupported cart payload version %d", p.Version)
	}

	seen := make(map[Key]bool, len(p.Lines))
	for _, l := range p.Lines {
		if l.ProductID == "" {
			return nil, fmt.Errorf("cart line missing product id")
		}
		if l.ProductName == "" {
			return nil, fmt.Errorf("cart line %q missing product name", l.ProductID)
		}
		if l.Quantity < 1 {
			return nil, fmt.Errorf("cart line %q has invalid quantity %d", l.ProductID, l.Quantity)
		}
		if l.WholesaleUnit < 0 || l.Margin < 0 {
			return nil, fmt.Errorf("cart line %q has negative pricing", l.ProductID)
		}
		if seen[l.Key()] {
			return nil, fmt.Errorf("duplicate cart line %v", l.Key())
		}
		seen[l.Key()] = true
	}

	if p.Lines == nil {
		p.Lines = []Line{}
	}
	return p.Lines, nil
}
