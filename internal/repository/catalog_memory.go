package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/dkarpov/flightbooking/internal/domain"
)

// MemoryFlightCatalog is a static in-process catalog, used in tests and in
// database-less runs.
type MemoryFlightCatalog struct {
	mu      sync.RWMutex
	flights map[string]domain.Flight
}

func NewMemoryFlightCatalog(flights ...domain.Flight) *MemoryFlightCatalog {
	c := &MemoryFlightCatalog{flights: make(map[string]domain.Flight, len(flights))}
	for _, f := range flights {
		c.flights[f.ID] = f
	}
	return c
}

func (c *MemoryFlightCatalog) Add(f domain.Flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flights[f.ID] = f
}

func (c *MemoryFlightCatalog) Exists(ctx context.Context, id string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.flights[id]
	return ok, nil
}

func (c *MemoryFlightCatalog) Capacity(ctx context.Context, id string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.flights[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return f.Capacity, nil
}

func (c *MemoryFlightCatalog) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.flights[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

func (c *MemoryFlightCatalog) Search(ctx context.Context, q SearchQuery) ([]domain.Flight, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	c.mu.RLock()
	matched := make([]domain.Flight, 0)
	for _, f := range c.flights {
		if q.Origin != "" && f.Origin != q.Origin {
			continue
		}
		if q.Destination != "" && f.Destination != q.Destination {
			continue
		}
		if !q.Date.IsZero() && !f.Date.Equal(q.Date) {
			continue
		}
		matched = append(matched, f)
	}
	c.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.Before(matched[j].Date)
		}
		return matched[i].ID < matched[j].ID
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

var _ FlightCatalog = (*MemoryFlightCatalog)(nil)
