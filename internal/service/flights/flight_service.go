package flights

import (
	"context"
	"fmt"
	"time"

	"github.com/dkarpov/flightbooking/internal/domain"
	"github.com/dkarpov/flightbooking/internal/repository"
)

type FlightUseCase interface {
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
	Search(ctx context.Context, q repository.SearchQuery) ([]domain.Flight, error)
}

type Cache interface {
	GetFlight(ctx context.Context, id string) (*domain.Flight, error)
	SetFlight(ctx context.Context, f domain.Flight) error
	GetSearch(ctx context.Context, key string) ([]domain.Flight, error)
	SetSearch(ctx context.Context, key string, flights []domain.Flight) error
}

// FlightService serves catalog reads, caching lookups in front of the store.
// Cache errors are ignored; the catalog remains the source of truth.
type FlightService struct {
	catalog repository.FlightCatalog
	cache   Cache
}

func NewFlightService(catalog repository.FlightCatalog, cache Cache) *FlightService {
	return &FlightService{catalog: catalog, cache: cache}
}

func (s *FlightService) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlight(ctx, id); err == nil && cached != nil {
			return cached, nil
		}
	}

	flight, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetFlight(ctx, *flight)
	}
	return flight, nil
}

func (s *FlightService) Search(ctx context.Context, q repository.SearchQuery) ([]domain.Flight, error) {
	key := searchCacheKey(q)
	if s.cache != nil {
		if cached, err := s.cache.GetSearch(ctx, key); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.catalog.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetSearch(ctx, key, flights)
	}
	return flights, nil
}

func searchCacheKey(q repository.SearchQuery) string {
	date := ""
	if !q.Date.IsZero() {
		date = q.Date.Format(time.DateOnly)
	}
	return fmt.Sprintf("%s:%s:%s:%d", q.Origin, q.Destination, date, q.Limit)
}

var _ FlightUseCase = (*FlightService)(nil)
