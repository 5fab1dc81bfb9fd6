package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"restaurant-fulfillment/internal/domain"
)

// MemoryStore is the default backend for single-node deployments and
// tests. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	orders   map[string]domain.Order
	settings map[string]domain.PrintSettings
	audit    []domain.PrintRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:   make(map[string]domain.Order),
		settings: make(map[string]domain.PrintSettings),
	}
}

func (s *MemoryStore) Upsert(_ context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.Order, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok, nil
}

func (s *MemoryStore) List(_ context.Context, tenantID string) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if tenantID != "" && o.TenantID != tenantID {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetPrintSettings(_ context.Context, tenantID string) (domain.PrintSettings, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ps, ok := s.settings[tenantID]
	return ps, ok, nil
}

func (s *MemoryStore) SavePrintSettings(_ context.Context, ps domain.PrintSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[ps.TenantID] = ps
	return nil
}

func (s *MemoryStore) RecordPrint(_ context.Context, rec domain.PrintRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.audit = append(s.audit, rec)
	return nil
}

func (s *MemoryStore) ListPrints(_ context.Context, orderID string) ([]domain.PrintRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.PrintRecord
	for _, r := range s.audit {
		if r.OrderID == orderID {
			out = append(out, r)
		}
	}
	return out, nil
}
