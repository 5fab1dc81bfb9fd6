package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"restaurant-fulfillment/internal/bus"
	"restaurant-fulfillment/internal/common/logger"
	"restaurant-fulfillment/internal/common/mq"
	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/repository"
)

// Bridge consumes order events published by the order-processing
// collaborator and replays them onto the in-process bus after the
// store upsert, so stream subscribers and the auto-print trigger see
// the same event.
type Bridge struct {
	mq    *mq.Client
	store repository.OrderStore
	bus   *bus.Bus
	lg    *logger.Logger
}

func NewBridge(client *mq.Client, store repository.OrderStore, b *bus.Bus, lg *logger.Logger) *Bridge {
	if lg == nil {
		lg = logger.Nop()
	}
	return &Bridge{mq: client, store: store, bus: b, lg: lg}
}

func (b *Bridge) Run(ctx context.Context) error {
	deliveries, err := b.mq.Consume(mq.FeedQueue, "feed-service")
	if err != nil {
		return fmt.Errorf("consume %s: %w", mq.FeedQueue, err)
	}
	b.lg.Info("bridge_consuming", map[string]any{"queue": mq.FeedQueue})

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("mq channel closed")
			}
			var ev domain.OrderEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				b.lg.Warn("bridge_bad_message", map[string]any{"error": err.Error()})
				_ = d.Nack(false, false)
				continue
			}
			if (ev.Type != domain.EventOrderCreated && ev.Type != domain.EventOrderUpdated) ||
				ev.Order == nil || ev.Order.ID == "" {
				b.lg.Warn("bridge_unusable_event", map[string]any{"type": string(ev.Type)})
				_ = d.Ack(false)
				continue
			}
			if err := b.store.Upsert(ctx, *ev.Order); err != nil {
				b.lg.Error("bridge_upsert_failed", err, map[string]any{"order_id": ev.Order.ID})
				_ = d.Nack(false, true)
				continue
			}
			b.bus.Publish(ev)
			_ = d.Ack(false)
		}
	}
}
