package receipt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-fulfillment/internal/domain"
)

var testTenant = domain.Tenant{
	ID:           "ten_1",
	Name:         "Taqueria Sol",
	AddressLine1: "12 Mission St",
	City:         "San Jose",
	State:        "CA",
	PostalCode:   "95112",
	ContactPhone: "(408) 555-0101",
}

func tacoOrder() domain.Order {
	return domain.Order{
		ID:                "ord_abc123",
		TenantID:          "ten_1",
		Status:            domain.StatusPending,
		FulfillmentMethod: "pickup",
		Items: []domain.OrderItem{
			{MenuItemName: "Taco", Quantity: 2, Price: 5.50},
		},
		SubtotalAmount: 11.00,
		TaxAmount:      1.20,
		TipAmount:      0,
		PlatformFee:    11.74,
		TotalAmount:    23.94,
		CustomerName:   "Ana",
		CreatedAt:      time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC),
	}
}

func TestFormatDeterministic(t *testing.T) {
	o := tacoOrder()
	a := Format(o, testTenant, Profile80)
	b := Format(o, testTenant, Profile80)
	require.Equal(t, a, b)
}

func TestFormatPickupReceipt80mm(t *testing.T) {
	out := Format(tacoOrder(), testTenant, Profile80)

	assert.Contains(t, out, "ORDER #ABC123")
	assert.Contains(t, out, "$23.94")
	assert.Contains(t, out, "[PICKUP]")
	assert.Contains(t, out, "2x Taco")
	assert.Contains(t, out, "$11.00")
	assert.NotContains(t, out, "Tip")
	assert.Contains(t, out, "Tax")
	assert.NotContains(t, out, "Delivery")
	// Trailing feed + cut close the stream.
	assert.True(t, strings.HasSuffix(out, CutPartial))
	assert.Contains(t, out, FeedLines(3))
}

func TestTipLineDelta(t *testing.T) {
	base := tacoOrder()
	withTip := tacoOrder()
	withTip.TipAmount = 3.00
	withTip.TotalAmount = base.TotalAmount + 3.00

	baseLines := strings.Split(Format(base, testTenant, Profile80), "\n")
	tipLines := strings.Split(Format(withTip, testTenant, Profile80), "\n")

	require.Equal(t, len(baseLines)+1, len(tipLines))

	var added []string
	for _, l := range tipLines {
		if strings.Contains(l, "Tip") {
			added = append(added, l)
		}
	}
	require.Len(t, added, 1)
	assert.Contains(t, added[0], "$3.00")
}

func TestProfilesChangeWidthNotOrder(t *testing.T) {
	o := tacoOrder()
	o.Notes = "extra salsa on the side please"
	narrow := Format(o, testTenant, Profile58)
	wide := Format(o, testTenant, Profile80)

	assert.Contains(t, narrow, strings.Repeat("=", 32))
	assert.Contains(t, wide, strings.Repeat("=", 42))

	// Same logical content in the same sequence.
	for _, s := range []string{"ORDER #ABC123", "[PICKUP]", "2x Taco", "Subtotal", "TOTAL", "NOTES:", "Thank you for your order!"} {
		assert.Contains(t, narrow, s)
		assert.Contains(t, wide, s)
	}
	idxBanner := strings.Index(wide, "[PICKUP]")
	idxItems := strings.Index(wide, "2x Taco")
	idxTotal := strings.Index(wide, "TOTAL")
	assert.Less(t, idxBanner, idxItems)
	assert.Less(t, idxItems, idxTotal)
}

func TestItemNotesWrappedWithMarker(t *testing.T) {
	o := tacoOrder()
	o.Items[0].Notes = "no onions no cilantro extra lime wedges and a side of green salsa"
	out := Format(o, testTenant, Profile58)

	marked := 0
	for _, l := range strings.Split(out, "\n") {
		if strings.Contains(l, noteMarker) {
			marked++
			assert.LessOrEqual(t, len(strings.TrimRight(l, " ")), 64)
		}
	}
	assert.GreaterOrEqual(t, marked, 2, "long note should wrap across marked lines")
}

func TestDeliveryAddressRendered(t *testing.T) {
	o := tacoOrder()
	o.FulfillmentMethod = "delivery"
	o.DeliveryAddress = &domain.Address{Line1: "99 Elm St", City: "San Jose", State: "CA", PostalCode: "95112"}
	out := Format(o, testTenant, Profile80)

	assert.Contains(t, out, "[DELIVERY]")
	assert.Contains(t, out, "99 Elm St")

	// Pickup orders never render an address even if one is set.
	o.FulfillmentMethod = "pickup"
	out = Format(o, testTenant, Profile80)
	assert.NotContains(t, out, "99 Elm St")
}

func TestMoneyRoundsNeverTruncates(t *testing.T) {
	assert.Equal(t, "$0.13", money(0.125))
	assert.Equal(t, "$1.00", money(0.999))
	assert.Equal(t, "$23.94", money(23.94))
}
