// Package money provides fixed-point monetary arithmetic for the storefront.
//
// Amounts are int64 values in currency minor units and margins are basis
// points, so every derivation is integer arithmetic with explicit rounding.
// Floating point never accumulates across line items.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a monetary value in currency minor units.
type Amount int64

// Percent is a percentage expressed in basis points (1% = 100).
type Percent int64

// basisPointScale converts between percent basis points and whole values.
const basisPointScale = 10_000

// PercentFromFloat converts a percentage (e.g. 20.5) to basis points,
// rounding half away from zero.
func PercentFromFloat(pct float64) (Percent, error) {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0, fmt.Errorf("percent must be finite, got %v", pct)
	}
	if pct < 0 {
		return 0, fmt.Errorf("percent must be non-negative, got %v", pct)
	}
	return Percent(math.Round(pct * 100)), nil
}

// Float returns the percentage as a float (2000 basis points -> 20.0).
// Intended for display only; arithmetic stays in basis points.
func (p Percent) Float() float64 {
	return float64(p) / 100
}

// ApplyMargin returns the amount increased by the margin percentage,
// rounded half-up. ApplyMargin(1000, 20%) == 1200.
func (a Amount) ApplyMargin(margin Percent) Amount {
	scaled := int64(a) * (basisPointScale + int64(margin))
	return Amount((scaled + basisPointScale/2) / basisPointScale)
}

// Mul returns the amount multiplied by an integer quantity.
func (a Amount) Mul(qty int) Amount {
	return a * Amount(qty)
}

// Format renders the amount as a currency string like "$12.500", with a dot
// as thousands separator. Grouping always kicks in past three digits; this
// is a fixed presentation contract with the fulfillment side, not a locale
// lookup.
func (a Amount) Format() string {
	neg := a < 0
	if neg {
		a = -a
	}

	s := strconv.FormatInt(int64(a), 10)
	if len(s) <= 3 {
		if neg {
			return "-$" + s
		}
		return "$" + s
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/3 + 2)
	if neg {
		b.WriteString("-$")
	} else {
		b.WriteString("$")
	}

	// Insert separators from the left.
	rem := len(s) % 3
	if rem == 0 {
		rem = 3
	}
	b.WriteString(s[:rem])
	for i := rem; i < len(s); i += 3 {
		b.WriteByte('.')
		b.WriteString(s[i : i+3])
	}

	return b.String()
}
