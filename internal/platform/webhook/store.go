package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryDeliveryStore is a thread-safe, in-memory DeliveryStore.
type InMemoryDeliveryStore struct {
	mu         sync.RWMutex
	deliveries map[string]*Delivery
	// ordered keys for deterministic pagination
	order []string
}

// NewInMemoryDeliveryStore creates a new empty in-memory store.
func NewInMemoryDeliveryStore() *InMemoryDeliveryStore {
	return &InMemoryDeliveryStore{
		deliveries: make(map[string]*Delivery),
	}
}

func (s *InMemoryDeliveryStore) Create(_ context.Context, d *Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *d
	s.deliveries[d.ID] = &copied
	s.order = append(s.order, d.ID)
	return nil
}

func (s *InMemoryDeliveryStore) Update(_ context.Context, d *Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliveries[d.ID]; !ok {
		return fmt.Errorf("delivery %s not found", d.ID)
	}
	copied := *d
	s.deliveries[d.ID] = &copied
	return nil
}

func (s *InMemoryDeliveryStore) Get(_ context.Context, id string) (*Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deliveries[id]
	if !ok {
		return nil, fmt.Errorf("delivery %s not found", id)
	}
	copied := *d
	return &copied, nil
}

func (s *InMemoryDeliveryStore) List(_ context.Context, consentID string, limit, offset int) ([]*Delivery, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []*Delivery
	for _, id := range s.order {
		d := s.deliveries[id]
		if d == nil {
			continue
		}
		if consentID == "" || (d.ConsentID != nil && *d.ConsentID == consentID) {
			copied := *d
			filtered = append(filtered, &copied)
		}
	}
	total := len(filtered)
	if offset >= total {
		return []*Delivery{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

func (s *InMemoryDeliveryStore) ListRetryable(_ context.Context, now time.Time, maxAttempts, limit int) ([]*Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*Delivery
	for _, id := range s.order {
		d := s.deliveries[id]
		if d == nil || d.Status != StatusFailed || d.NextRetryAt == nil {
			continue
		}
		if d.Attempts >= maxAttempts || d.NextRetryAt.After(now) {
			continue
		}
		copied := *d
		due = append(due, &copied)
		if len(due) >= limit {
			break
		}
	}
	return due, nil
}
