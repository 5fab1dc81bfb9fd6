// Package repository persists the fulfillment state the feed service
// serves: the order cache fed by the message bridge, per-tenant print
// settings, and the print audit log.
package repository

import (
	"context"

	"restaurant-fulfillment/internal/domain"
)

type OrderStore interface {
	// Upsert inserts or replaces the order by id.
	Upsert(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, bool, error)
	// List returns orders newest-first. An empty tenantID means all
	// tenants.
	List(ctx context.Context, tenantID string) ([]domain.Order, error)
}

type SettingsStore interface {
	GetPrintSettings(ctx context.Context, tenantID string) (domain.PrintSettings, bool, error)
	SavePrintSettings(ctx context.Context, s domain.PrintSettings) error
}

type AuditStore interface {
	RecordPrint(ctx context.Context, rec domain.PrintRecord) error
	ListPrints(ctx context.Context, orderID string) ([]domain.PrintRecord, error)
}

// Store is the full persistence surface of the feed service.
type Store interface {
	OrderStore
	SettingsStore
	AuditStore
}
