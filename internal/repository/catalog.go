package repository

import (
	"context"
	"time"

	"github.com/dkarpov/flightbooking/internal/domain"
)

// SearchQuery filters the flight catalog. Zero fields match everything.
type SearchQuery struct {
	Origin      string
	Destination string
	Date        time.Time
	Limit       int
}

// FlightCatalog is the read-only flight store. The booking core consults it
// only to validate flights and obtain capacity; the search surface exists for
// the flight endpoints.
type FlightCatalog interface {
	Exists(ctx context.Context, id string) (bool, error)
	Capacity(ctx context.Context, id string) (int, error)
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
	Search(ctx context.Context, q SearchQuery) ([]domain.Flight, error)
}
