package domain

type EventType string

const (
	EventOrderCreated EventType = "order.created"
	EventOrderUpdated EventType = "order.updated"
	EventInit         EventType = "init"
)

// OrderEvent is what travels on the in-process bus and on the feed
// wire. An init event carries a full snapshot instead of a single
// order; it is only ever emitted by the stream endpoint on connect.
type OrderEvent struct {
	Type   EventType `json:"type"`
	Order  *Order    `json:"order,omitempty"`
	Orders []Order   `json:"orders,omitempty"`
}
