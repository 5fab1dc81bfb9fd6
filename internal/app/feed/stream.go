package feed

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-fulfillment/internal/domain"
)

// streamBuffer bounds the per-connection event queue. A consumer that
// cannot keep up loses pushed events; its polling channel compensates.
const streamBuffer = 64

func (s *Service) streamOrders(c *gin.Context) {
	tenant := c.Query("tenant")
	orders, err := s.store.List(c.Request.Context(), tenant)
	if err != nil {
		s.lg.Error("stream_snapshot_failed", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}

	events := make(chan domain.OrderEvent, streamBuffer)
	unsubscribe := s.bus.Subscribe(func(ev domain.OrderEvent) {
		if tenant != "" && ev.Order != nil && ev.Order.TenantID != tenant {
			return
		}
		select {
		case events <- ev:
		default:
			s.lg.Debug("stream_event_dropped", map[string]any{"type": string(ev.Type)})
		}
	})
	defer unsubscribe()

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	w := c.Writer
	enc := json.NewEncoder(w)

	if err := enc.Encode(domain.OrderEvent{Type: domain.EventInit, Orders: orders}); err != nil {
		return
	}
	w.Flush()
	s.lg.Info("stream_client_connected", map[string]any{"tenant_id": tenant})

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			s.lg.Info("stream_client_disconnected", map[string]any{"tenant_id": tenant})
			return
		case ev := <-events:
			if err := enc.Encode(ev); err != nil {
				return
			}
			w.Flush()
		}
	}
}
