package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"restaurant-fulfillment/internal/common/db"
	"restaurant-fulfillment/internal/domain"
)

// PostgresStore keeps the order document as JSONB next to the columns
// queries filter on. The document is authoritative; the columns are
// derived on every write.
type PostgresStore struct {
	conn *db.Conn
}

func NewPostgresStore(conn *db.Conn) *PostgresStore {
	return &PostgresStore{conn: conn}
}

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id         TEXT PRIMARY KEY,
    tenant_id  TEXT        NOT NULL,
    status     TEXT        NOT NULL,
    version    BIGINT      NOT NULL DEFAULT 0,
    payload    JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_tenant_created_idx ON orders (tenant_id, created_at DESC);

CREATE TABLE IF NOT EXISTS print_settings (
    tenant_id  TEXT PRIMARY KEY,
    auto_print BOOLEAN NOT NULL DEFAULT FALSE,
    printer    JSONB   NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS print_audit (
    id         TEXT PRIMARY KEY,
    order_id   TEXT        NOT NULL,
    tenant_id  TEXT        NOT NULL,
    provider   TEXT        NOT NULL,
    status     TEXT        NOT NULL,
    error      TEXT        NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS print_audit_order_idx ON print_audit (order_id);
`

// Migrate creates the schema. Idempotent, run at service start.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, o domain.Order) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order %s: %w", o.ID, err)
	}
	_, err = s.conn.Exec(ctx, `
		INSERT INTO orders (id, tenant_id, status, version, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
		    tenant_id  = EXCLUDED.tenant_id,
		    status     = EXCLUDED.status,
		    version    = EXCLUDED.version,
		    payload    = EXCLUDED.payload,
		    updated_at = EXCLUDED.updated_at
	`, o.ID, o.TenantID, string(o.Status), o.Version, payload, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert order %s: %w", o.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (domain.Order, bool, error) {
	var payload []byte
	err := s.conn.QueryRow(ctx, `SELECT payload FROM orders WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("get order %s: %w", id, err)
	}
	var o domain.Order
	if err := json.Unmarshal(payload, &o); err != nil {
		return domain.Order{}, false, fmt.Errorf("decode order %s: %w", id, err)
	}
	return o, true, nil
}

func (s *PostgresStore) List(ctx context.Context, tenantID string) ([]domain.Order, error) {
	query := `SELECT payload FROM orders ORDER BY created_at DESC, id DESC`
	args := []any{}
	if tenantID != "" {
		query = `SELECT payload FROM orders WHERE tenant_id = $1 ORDER BY created_at DESC, id DESC`
		args = append(args, tenantID)
	}
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []domain.Order{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var o domain.Order
		if err := json.Unmarshal(payload, &o); err != nil {
			return nil, fmt.Errorf("decode order row: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetPrintSettings(ctx context.Context, tenantID string) (domain.PrintSettings, bool, error) {
	var (
		autoPrint bool
		printer   []byte
	)
	err := s.conn.QueryRow(ctx, `
		SELECT auto_print, printer FROM print_settings WHERE tenant_id = $1
	`, tenantID).Scan(&autoPrint, &printer)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PrintSettings{}, false, nil
	}
	if err != nil {
		return domain.PrintSettings{}, false, fmt.Errorf("get print settings %s: %w", tenantID, err)
	}
	ps := domain.PrintSettings{TenantID: tenantID, AutoPrint: autoPrint}
	if err := json.Unmarshal(printer, &ps.Printer); err != nil {
		return domain.PrintSettings{}, false, fmt.Errorf("decode printer config %s: %w", tenantID, err)
	}
	return ps, true, nil
}

func (s *PostgresStore) SavePrintSettings(ctx context.Context, ps domain.PrintSettings) error {
	printer, err := json.Marshal(ps.Printer)
	if err != nil {
		return fmt.Errorf("marshal printer config %s: %w", ps.TenantID, err)
	}
	_, err = s.conn.Exec(ctx, `
		INSERT INTO print_settings (tenant_id, auto_print, printer)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id) DO UPDATE SET
		    auto_print = EXCLUDED.auto_print,
		    printer    = EXCLUDED.printer
	`, ps.TenantID, ps.AutoPrint, printer)
	if err != nil {
		return fmt.Errorf("save print settings %s: %w", ps.TenantID, err)
	}
	return nil
}

func (s *PostgresStore) RecordPrint(ctx context.Context, rec domain.PrintRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO print_audit (id, order_id, tenant_id, provider, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.OrderID, rec.TenantID, rec.Provider, rec.Status, rec.Error, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("record print %s: %w", rec.OrderID, err)
	}
	return nil
}

func (s *PostgresStore) ListPrints(ctx context.Context, orderID string) ([]domain.PrintRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, order_id, tenant_id, provider, status, error, created_at
		FROM print_audit WHERE order_id = $1
		ORDER BY created_at ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list prints %s: %w", orderID, err)
	}
	defer rows.Close()

	var out []domain.PrintRecord
	for rows.Next() {
		var r domain.PrintRecord
		if err := rows.Scan(&r.ID, &r.OrderID, &r.TenantID, &r.Provider, &r.Status, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
