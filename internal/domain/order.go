package domain

import (
	"fmt"
	"math"
	"time"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// allowedTransitions is the forward path of the order lifecycle.
// cancelled is reachable from any non-terminal state.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

type OrderItem struct {
	MenuItemName string  `json:"menuItemName"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	Notes        string  `json:"notes,omitempty"`
}

// Order is the read-only aggregate produced by the order-processing
// collaborator. This core never mutates persisted orders, it only fans
// them out.
type Order struct {
	ID                string      `json:"id"`
	TenantID          string      `json:"tenantId"`
	Status            OrderStatus `json:"status"`
	FulfillmentMethod string      `json:"fulfillmentMethod"` // pickup | delivery
	Items             []OrderItem `json:"items"`
	SubtotalAmount    float64     `json:"subtotalAmount"`
	TaxAmount         float64     `json:"taxAmount"`
	DeliveryFee       float64     `json:"deliveryFee"`
	TipAmount         float64     `json:"tipAmount"`
	PlatformFee       float64     `json:"platformFee"`
	TotalAmount       float64     `json:"totalAmount"`
	CustomerName      string      `json:"customerName,omitempty"`
	CustomerPhone     string      `json:"customerPhone,omitempty"`
	CustomerEmail     string      `json:"customerEmail,omitempty"`
	DeliveryAddress   *Address    `json:"deliveryAddress,omitempty"`
	Notes             string      `json:"notes,omitempty"`
	Version           int64       `json:"version"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// ShortID is the human-facing order number printed on receipts and
// shown on the dashboard: last 6 characters of the id, uppercased.
func (o Order) ShortID() string {
	id := o.ID
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	upper := make([]byte, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper[i] = c
	}
	return string(upper)
}

const moneyTolerance = 0.01

func (o Order) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("order id is empty")
	}
	if o.TenantID == "" {
		return fmt.Errorf("order %s: tenant id is empty", o.ID)
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("order %s: no items", o.ID)
	}
	for i, it := range o.Items {
		if it.Quantity < 1 {
			return fmt.Errorf("order %s: item %d quantity %d < 1", o.ID, i, it.Quantity)
		}
		if it.Price < 0 {
			return fmt.Errorf("order %s: item %d negative price", o.ID, i)
		}
	}
	for name, v := range map[string]float64{
		"subtotal": o.SubtotalAmount, "tax": o.TaxAmount, "delivery_fee": o.DeliveryFee,
		"tip": o.TipAmount, "platform_fee": o.PlatformFee, "total": o.TotalAmount,
	} {
		if v < 0 {
			return fmt.Errorf("order %s: negative %s", o.ID, name)
		}
	}
	sum := o.SubtotalAmount + o.TaxAmount + o.DeliveryFee + o.TipAmount + o.PlatformFee
	if math.Abs(sum-o.TotalAmount) > moneyTolerance {
		return fmt.Errorf("order %s: total %.2f does not match component sum %.2f", o.ID, o.TotalAmount, sum)
	}
	return nil
}

type Tenant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1,omitempty"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
}
