package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-fulfillment/internal/bus"
	"restaurant-fulfillment/internal/common/httpx"
	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/repository"
)

func newTestService(t *testing.T) (*gin.Engine, *repository.MemoryStore, *bus.Bus) {
	t.Helper()
	store := repository.NewMemoryStore()
	b := bus.New(nil)
	engine := httpx.NewEngine()
	NewService(store, b, nil).Register(engine)
	return engine, store, b
}

func seedOrder(t *testing.T, store *repository.MemoryStore, id, tenant string, status domain.OrderStatus, createdOffset time.Duration) domain.Order {
	t.Helper()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	o := domain.Order{
		ID:        id,
		TenantID:  tenant,
		Status:    status,
		Version:   1,
		CreatedAt: base.Add(createdOffset),
		UpdatedAt: base.Add(createdOffset),
	}
	require.NoError(t, store.Upsert(context.Background(), o))
	return o
}

func TestListOrdersFiltersByTenant(t *testing.T) {
	engine, store, _ := newTestService(t)
	seedOrder(t, store, "a", "ten_1", domain.StatusPending, 0)
	seedOrder(t, store, "b", "ten_1", domain.StatusPending, time.Minute)
	seedOrder(t, store, "x", "ten_2", domain.StatusPending, 0)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/fulfillment/orders?tenant=ten_1", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var orders []domain.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 2)
	assert.Equal(t, "b", orders[0].ID, "newest first")
	assert.Equal(t, "a", orders[1].ID)
}

func TestUpdateStatusHappyPath(t *testing.T) {
	engine, store, b := newTestService(t)
	seedOrder(t, store, "ord_1", "ten_1", domain.StatusPending, 0)

	var published []domain.OrderEvent
	b.Subscribe(func(ev domain.OrderEvent) { published = append(published, ev) })

	body := bytes.NewBufferString(`{"status":"confirmed"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/fulfillment/orders/ord_1/status", body)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got domain.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.StatusConfirmed, got.Status)
	assert.EqualValues(t, 2, got.Version, "version bumped")

	stored, _, err := store.Get(context.Background(), "ord_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)

	require.Len(t, published, 1)
	assert.Equal(t, domain.EventOrderUpdated, published[0].Type)
	require.NotNil(t, published[0].Order)
	assert.EqualValues(t, 2, published[0].Order.Version)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	engine, store, b := newTestService(t)
	seedOrder(t, store, "ord_1", "ten_1", domain.StatusPending, 0)

	published := 0
	b.Subscribe(func(domain.OrderEvent) { published++ })

	body := bytes.NewBufferString(`{"status":"completed"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/fulfillment/orders/ord_1/status", body)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Zero(t, published)

	stored, _, err := store.Get(context.Background(), "ord_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.EqualValues(t, 1, stored.Version)
}

func TestUpdateStatusValidation(t *testing.T) {
	engine, store, _ := newTestService(t)
	seedOrder(t, store, "ord_1", "ten_1", domain.StatusPending, 0)

	cases := []struct {
		name string
		path string
		body string
		code int
	}{
		{"unknown order", "/api/fulfillment/orders/missing/status", `{"status":"confirmed"}`, http.StatusNotFound},
		{"unknown status", "/api/fulfillment/orders/ord_1/status", `{"status":"teleported"}`, http.StatusBadRequest},
		{"bad body", "/api/fulfillment/orders/ord_1/status", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPatch, tc.path, bytes.NewBufferString(tc.body))
			engine.ServeHTTP(w, req)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestCreateTestOrder(t *testing.T) {
	engine, store, b := newTestService(t)

	var published []domain.OrderEvent
	b.Subscribe(func(ev domain.OrderEvent) { published = append(published, ev) })

	body := bytes.NewBufferString(`{"tenantId":"ten_1"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/fulfillment/test-order", body)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var got domain.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "ten_1", got.TenantID)
	assert.NoError(t, got.Validate())

	stored, ok, err := store.Get(context.Background(), got.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPending, stored.Status)

	require.Len(t, published, 1)
	assert.Equal(t, domain.EventOrderCreated, published[0].Type)
}

func TestCreateTestOrderRequiresTenant(t *testing.T) {
	engine, _, _ := newTestService(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/fulfillment/test-order", nil)
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamSendsInitThenBusEvents(t *testing.T) {
	engine, store, b := newTestService(t)
	seedOrder(t, store, "backfill", "ten_1", domain.StatusPending, 0)

	srv := httptest.NewServer(engine)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/fulfillment/orders/stream?tenant=ten_1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	require.True(t, sc.Scan(), "init line expected")
	var init domain.OrderEvent
	require.NoError(t, json.Unmarshal(sc.Bytes(), &init))
	assert.Equal(t, domain.EventInit, init.Type)
	require.Len(t, init.Orders, 1)
	assert.Equal(t, "backfill", init.Orders[0].ID)

	// The handler subscribes before writing the init line, so once
	// that line is read the subscription is guaranteed to be live.
	live := domain.Order{ID: "live", TenantID: "ten_1", Status: domain.StatusPending, CreatedAt: time.Now()}
	b.Publish(domain.OrderEvent{Type: domain.EventOrderCreated, Order: &live})

	require.True(t, sc.Scan(), "pushed event expected")
	var ev domain.OrderEvent
	require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
	assert.Equal(t, domain.EventOrderCreated, ev.Type)
	require.NotNil(t, ev.Order)
	assert.Equal(t, "live", ev.Order.ID)
}

func TestStreamFiltersOtherTenants(t *testing.T) {
	engine, _, b := newTestService(t)

	srv := httptest.NewServer(engine)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/fulfillment/orders/stream?tenant=ten_1")
	require.NoError(t, err)
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	require.True(t, sc.Scan(), "init line expected")

	other := domain.Order{ID: "other", TenantID: "ten_2", Status: domain.StatusPending}
	mine := domain.Order{ID: "mine", TenantID: "ten_1", Status: domain.StatusPending}
	b.Publish(domain.OrderEvent{Type: domain.EventOrderCreated, Order: &other})
	b.Publish(domain.OrderEvent{Type: domain.EventOrderCreated, Order: &mine})

	// The first line after init must be ten_1's order; ten_2's was
	// filtered before it reached the connection channel.
	require.True(t, sc.Scan())
	var ev domain.OrderEvent
	require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
	require.NotNil(t, ev.Order)
	assert.Equal(t, "mine", ev.Order.ID)
}
