// Package autoprint turns order creation events into receipt prints
// when the tenant has auto-print enabled. Settings are fetched at
// trigger time, not cached, so toggling the feature applies to the
// next order.
package autoprint

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"restaurant-fulfillment/internal/bus"
	"restaurant-fulfillment/internal/common/logger"
	"restaurant-fulfillment/internal/dispatch"
	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/receipt"
	"restaurant-fulfillment/internal/repository"
)

const printTimeout = 30 * time.Second

// EngineFactory builds the dispatch chain for a printer configuration.
type EngineFactory func(cfg domain.PrinterConfig) *dispatch.Engine

// TenantResolver supplies the header block printed on receipts.
type TenantResolver func(ctx context.Context, tenantID string) (domain.Tenant, error)

type Config struct {
	Store  repository.Store
	Logger *logger.Logger
	Engine EngineFactory  // defaults to the server-side chain
	Tenant TenantResolver // defaults to a name-only header
	Clock  func() time.Time
}

// Trigger is the bus subscriber. One auto-print attempt per order id
// per process; a failed attempt is forgotten so the operator's manual
// retry (or a restart) can try again.
type Trigger struct {
	store     repository.Store
	lg        *logger.Logger
	engineFor EngineFactory
	tenant    TenantResolver
	now       func() time.Time

	mu        sync.Mutex
	attempted map[string]struct{}
	wg        sync.WaitGroup
}

func New(cfg Config) *Trigger {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Engine == nil {
		lg := cfg.Logger
		cfg.Engine = func(pc domain.PrinterConfig) *dispatch.Engine {
			return dispatch.ServerEngine(lg, pc)
		}
	}
	if cfg.Tenant == nil {
		cfg.Tenant = func(_ context.Context, tenantID string) (domain.Tenant, error) {
			return domain.Tenant{ID: tenantID, Name: tenantID}, nil
		}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Trigger{
		store:     cfg.Store,
		lg:        cfg.Logger,
		engineFor: cfg.Engine,
		tenant:    cfg.Tenant,
		now:       cfg.Clock,
		attempted: make(map[string]struct{}),
	}
}

// Attach subscribes to the bus. The callback only claims the order and
// hands off to a goroutine; printing must never block the publisher.
func (t *Trigger) Attach(b *bus.Bus) func() {
	return b.Subscribe(func(ev domain.OrderEvent) {
		if ev.Type != domain.EventOrderCreated || ev.Order == nil {
			return
		}
		t.HandleOrder(*ev.Order)
	})
}

// HandleOrder starts an auto-print for the order unless one was
// already attempted.
func (t *Trigger) HandleOrder(o domain.Order) {
	t.mu.Lock()
	if _, dup := t.attempted[o.ID]; dup {
		t.mu.Unlock()
		t.lg.Debug("auto_print_already_attempted", map[string]any{"order_id": o.ID})
		return
	}
	t.attempted[o.ID] = struct{}{}
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.print(o)
	}()
}

// Wait blocks until all in-flight prints finish.
func (t *Trigger) Wait() { t.wg.Wait() }

func (t *Trigger) print(o domain.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), printTimeout)
	defer cancel()

	ps, ok, err := t.store.GetPrintSettings(ctx, o.TenantID)
	if err != nil {
		t.lg.Error("print_settings_fetch_failed", err, map[string]any{"tenant_id": o.TenantID})
		t.forget(o.ID)
		return
	}
	if !ok || !ps.AutoPrint || ps.Printer.Kind == domain.PrinterNone || ps.Printer.Kind == "" {
		t.lg.Debug("auto_print_skipped", map[string]any{"order_id": o.ID, "tenant_id": o.TenantID})
		t.forget(o.ID)
		return
	}

	ten, err := t.tenant(ctx, o.TenantID)
	if err != nil {
		t.lg.Warn("tenant_lookup_failed", map[string]any{"tenant_id": o.TenantID, "error": err.Error()})
		ten = domain.Tenant{ID: o.TenantID, Name: o.TenantID}
	}
	payload := receipt.Format(o, ten, receipt.ProfileByName(ps.Printer.Profile))

	res := t.engineFor(ps.Printer).DispatchWithRetry(ctx, []byte(payload))

	rec := domain.PrintRecord{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		TenantID:  o.TenantID,
		Provider:  res.Provider,
		Status:    "printed",
		CreatedAt: t.now(),
	}
	if !res.OK {
		rec.Status = "failed"
		rec.Error = res.Err.Error()
		t.forget(o.ID)
		t.lg.Warn("auto_print_failed", map[string]any{"order_id": o.ID, "reason": rec.Error})
	} else {
		t.lg.Info("auto_print_completed", map[string]any{"order_id": o.ID, "provider": res.Provider})
	}
	if err := t.store.RecordPrint(ctx, rec); err != nil {
		t.lg.Error("print_audit_failed", err, map[string]any{"order_id": o.ID})
	}
}

func (t *Trigger) forget(id string) {
	t.mu.Lock()
	delete(t.attempted, id)
	t.mu.Unlock()
}
