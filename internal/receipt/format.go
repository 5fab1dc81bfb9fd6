// Package receipt renders an order into an ESC/POS byte/text stream.
// Format is pure: same inputs, byte-identical output.
package receipt

import (
	"fmt"
	"math"
	"strings"

	"restaurant-fulfillment/internal/domain"
)

// Profile fixes the column count of the paper width. The logical line
// order never changes between profiles, only padding does.
type Profile struct {
	Name  string
	Width int // printable columns
}

var (
	Profile58 = Profile{Name: "escpos-58mm", Width: 32}
	Profile80 = Profile{Name: "escpos-80mm", Width: 42}
)

func ProfileByName(name string) Profile {
	if name == Profile58.Name {
		return Profile58
	}
	return Profile80
}

const priceWidth = 10

// Format renders the receipt for one order. Layout, top to bottom:
// tenant header, order number and timestamp, fulfillment banner,
// customer block, items with notes, totals (zero lines omitted),
// double-size total, order notes, thank-you, feed and cut.
func Format(order domain.Order, tenant domain.Tenant, p Profile) string {
	var b strings.Builder
	sep := strings.Repeat("=", p.Width)
	dash := strings.Repeat("-", p.Width)

	b.WriteString(Init)

	// Tenant header.
	b.WriteString(AlignCenter)
	b.WriteString(DoubleOn + BoldOn)
	b.WriteString(strings.ToUpper(tenant.Name))
	b.WriteString(Normal + LF)
	if tenant.AddressLine1 != "" {
		b.WriteString(tenant.AddressLine1 + LF)
	}
	if tenant.AddressLine2 != "" {
		b.WriteString(tenant.AddressLine2 + LF)
	}
	if tenant.City != "" && tenant.State != "" {
		b.WriteString(fmt.Sprintf("%s, %s %s", tenant.City, tenant.State, tenant.PostalCode) + LF)
	}
	if tenant.ContactPhone != "" {
		b.WriteString(tenant.ContactPhone + LF)
	}
	b.WriteString(sep + LF)

	// Order number and creation time.
	b.WriteString(AlignLeft)
	b.WriteString(BoldOn + "ORDER #" + order.ShortID() + BoldOff + LF)
	b.WriteString(order.CreatedAt.Format("01/02/2006 3:04 PM") + LF)

	// Fulfillment banner.
	b.WriteString(DoubleHeightOn + BoldOn)
	b.WriteString("[" + strings.ToUpper(order.FulfillmentMethod) + "]")
	b.WriteString(Normal + LF)
	b.WriteString(LF)

	// Customer block.
	if order.CustomerName != "" {
		b.WriteString("Customer: " + order.CustomerName + LF)
	}
	if order.CustomerPhone != "" {
		b.WriteString("Phone: " + order.CustomerPhone + LF)
	}
	if order.FulfillmentMethod == "delivery" && order.DeliveryAddress != nil {
		a := order.DeliveryAddress
		b.WriteString(a.Line1 + LF)
		if a.Line2 != "" {
			b.WriteString(a.Line2 + LF)
		}
		b.WriteString(fmt.Sprintf("%s, %s %s", a.City, a.State, a.PostalCode) + LF)
	}
	b.WriteString(dash + LF)

	// Items.
	nameWidth := p.Width - priceWidth
	for _, it := range order.Items {
		line := fmt.Sprintf("%dx %s", it.Quantity, it.MenuItemName)
		b.WriteString(padRight(truncate(line, nameWidth), nameWidth))
		b.WriteString(padLeft(money(it.Price*float64(it.Quantity)), priceWidth))
		b.WriteString(LF)
		if it.Notes != "" {
			for _, nl := range wrap(it.Notes, p.Width-5) {
				b.WriteString("   " + noteMarker + " " + nl + LF)
			}
		}
	}
	b.WriteString(dash + LF)

	// Totals. Zero tax/delivery/tip lines are omitted outright.
	b.WriteString(totalLine("Subtotal", order.SubtotalAmount, p.Width))
	if order.TaxAmount > 0 {
		b.WriteString(totalLine("Tax", order.TaxAmount, p.Width))
	}
	if order.DeliveryFee > 0 {
		b.WriteString(totalLine("Delivery", order.DeliveryFee, p.Width))
	}
	if order.TipAmount > 0 {
		b.WriteString(totalLine("Tip", order.TipAmount, p.Width))
	}
	b.WriteString(DoubleHeightOn + BoldOn)
	b.WriteString(totalLine("TOTAL", order.TotalAmount, p.Width))
	b.WriteString(Normal)

	// Order-level notes.
	if order.Notes != "" {
		b.WriteString(LF)
		b.WriteString(BoldOn + "NOTES:" + BoldOff + LF)
		for _, nl := range wrap(order.Notes, p.Width) {
			b.WriteString(nl + LF)
		}
	}

	// Footer.
	b.WriteString(LF)
	b.WriteString(AlignCenter)
	b.WriteString("Thank you for your order!" + LF)
	b.WriteString(FeedLines(3))
	b.WriteString(CutPartial)

	return b.String()
}

const noteMarker = "→"

func totalLine(label string, v float64, width int) string {
	return padRight(label, width-priceWidth) + padLeft(money(v), priceWidth) + LF
}

// money renders exactly two decimals, rounding (never truncating).
func money(v float64) string {
	return fmt.Sprintf("$%.2f", math.Round(v*100)/100)
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

func padLeft(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return strings.Repeat(" ", w-len(s)) + s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func wrap(text string, width int) []string {
	words := strings.Fields(text)
	var lines []string
	var cur string
	for _, w := range words {
		switch {
		case cur == "":
			cur = w
		case len(cur)+1+len(w) <= width:
			cur += " " + w
		default:
			lines = append(lines, cur)
			cur = w
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}
