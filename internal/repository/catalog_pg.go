package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dkarpov/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGFlightCatalog struct {
	db *pgxpool.Pool
}

func NewPGFlightCatalog(db *pgxpool.Pool) FlightCatalog {
	return &PGFlightCatalog{db: db}
}

func (r *PGFlightCatalog) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM flights WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, domain.NewStorageError("flight exists", err)
	}
	return exists, nil
}

func (r *PGFlightCatalog) Capacity(ctx context.Context, id string) (int, error) {
	var capacity int
	err := r.db.QueryRow(ctx, `SELECT capacity FROM flights WHERE id = $1`, id).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, domain.NewStorageError("flight capacity", err)
	}
	return capacity, nil
}

func (r *PGFlightCatalog) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT id, origin, destination, date, airline, price_cents, capacity FROM flights WHERE id = $1`, id)
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.Origin, &f.Destination, &f.Date, &f.Airline, &f.PriceCents, &f.Capacity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStorageError("get flight", err)
	}
	return &f, nil
}

func (r *PGFlightCatalog) Search(ctx context.Context, q SearchQuery) ([]domain.Flight, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT id, origin, destination, date, airline, price_cents, capacity FROM flights
		WHERE ($1 = '' OR origin = $1)
		  AND ($2 = '' OR destination = $2)
		  AND ($3::date IS NULL OR date = $3)
		ORDER BY date, id
		LIMIT $4`, q.Origin, q.Destination, nullableDate(q.Date), limit)
	if err != nil {
		return nil, domain.NewStorageError("search flights", err)
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		var f domain.Flight
		if err := rows.Scan(&f.ID, &f.Origin, &f.Destination, &f.Date, &f.Airline, &f.PriceCents, &f.Capacity); err != nil {
			return nil, domain.NewStorageError("search flights", err)
		}
		flights = append(flights, f)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("search flights", err)
	}
	return flights, nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ FlightCatalog = (*PGFlightCatalog)(nil)
