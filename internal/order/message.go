package order

import (
	"fmt"
	"strings"
	"time"
)

// BuildMessage renders the handoff message for an order.
//
// The template is a presentation contract with the human fulfillment side:
// field order and labels are fixed, and the output is fully determined by
// the order snapshot, so the same order always produces the same message.
func BuildMessage(o Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Nuevo pedido #%s\n", o.ID)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Cliente: %s\n", o.Customer.Name)
	fmt.Fprintf(&b, "Teléfono: %s\n", o.Customer.Phone)
	fmt.Fprintf(&b, "Entrega: %s\n", o.Customer.Address)
	b.WriteString("\n")
	b.WriteString("Pedido:\n")
	for _, l := range o.Lines {
		if l.Variant != "" {
			fmt.Fprintf(&b, "- %s (%s) × %d a %s c/u\n", l.ProductName, l.Variant, l.Quantity, l.FinalUnit().Format())
		} else {
			fmt.Fprintf(&b, "- %s × %d a %s c/u\n", l.ProductName, l.Quantity, l.FinalUnit().Format())
		}
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Total: %s\n", o.Totals.GrandTotal.Format())
	b.WriteString("\n")
	fmt.Fprintf(&b, "Fecha: %s\n", time.UnixMilli(o.CreatedAt).UTC().Format(time.RFC3339))

	return b.String()
}
