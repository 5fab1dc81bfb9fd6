// Package feed is the server side of the fulfillment feed: the HTTP
// surface the dashboard and print agents consume, the in-process event
// bus behind it, and the message-queue bridge that feeds the bus from
// the order-processing collaborator.
package feed

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restaurant-fulfillment/internal/bus"
	"restaurant-fulfillment/internal/common/logger"
	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/repository"
)

type Service struct {
	store repository.Store
	bus   *bus.Bus
	lg    *logger.Logger
	now   func() time.Time
}

func NewService(store repository.Store, b *bus.Bus, lg *logger.Logger) *Service {
	if lg == nil {
		lg = logger.Nop()
	}
	return &Service{store: store, bus: b, lg: lg, now: time.Now}
}

func (s *Service) Register(r *gin.Engine) {
	api := r.Group("/api/fulfillment")
	api.GET("/orders", s.listOrders)
	api.GET("/orders/stream", s.streamOrders)
	api.PATCH("/orders/:id/status", s.updateStatus)
	api.POST("/test-order", s.createTestOrder)
}

func (s *Service) listOrders(c *gin.Context) {
	orders, err := s.store.List(c.Request.Context(), c.Query("tenant"))
	if err != nil {
		s.lg.Error("list_orders_failed", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Service) updateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	to := domain.OrderStatus(req.Status)
	if !to.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + req.Status})
		return
	}

	id := c.Param("id")
	o, ok, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.lg.Error("get_order_failed", err, map[string]any{"order_id": id})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	if !domain.CanTransition(o.Status, to) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "cannot transition from " + string(o.Status) + " to " + string(to),
		})
		return
	}

	o.Status = to
	o.Version++
	o.UpdatedAt = s.now()
	if err := s.store.Upsert(c.Request.Context(), o); err != nil {
		s.lg.Error("update_order_failed", err, map[string]any{"order_id": id})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save order"})
		return
	}

	s.bus.Publish(domain.OrderEvent{Type: domain.EventOrderUpdated, Order: &o})
	s.lg.Info("order_status_updated", map[string]any{"order_id": id, "status": string(to)})
	c.JSON(http.StatusOK, o)
}

type testOrderRequest struct {
	TenantID string `json:"tenantId"`
}

// createTestOrder fabricates a plausible order so printers and
// dashboards can be verified without the order collaborator running.
func (s *Service) createTestOrder(c *gin.Context) {
	var req testOrderRequest
	_ = c.ShouldBindJSON(&req)
	if req.TenantID == "" {
		req.TenantID = c.Query("tenant")
	}
	if req.TenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenantId is required"})
		return
	}

	now := s.now()
	o := domain.Order{
		ID:                uuid.NewString(),
		TenantID:          req.TenantID,
		Status:            domain.StatusPending,
		FulfillmentMethod: "pickup",
		Items: []domain.OrderItem{
			{MenuItemName: "Margherita Pizza", Quantity: 2, Price: 8.50},
			{MenuItemName: "Garlic Bread", Quantity: 1, Price: 4.25, Notes: "extra crispy"},
		},
		SubtotalAmount: 21.25,
		TaxAmount:      1.86,
		TotalAmount:    23.11,
		CustomerName:   "Test Customer",
		CustomerPhone:  "555-0100",
		Notes:          "test order, do not prepare",
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Upsert(c.Request.Context(), o); err != nil {
		s.lg.Error("create_test_order_failed", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store order"})
		return
	}

	s.bus.Publish(domain.OrderEvent{Type: domain.EventOrderCreated, Order: &o})
	s.lg.Info("test_order_created", map[string]any{"order_id": o.ID, "tenant_id": o.TenantID})
	c.JSON(http.StatusCreated, o)
}
