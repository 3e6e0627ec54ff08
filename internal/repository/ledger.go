package repository

import (
	"context"
	"time"

	"github.com/dkarpov/flightbooking/internal/domain"
)

// Ledger is the durable authority for seat counters and booking records.
// Every mutating operation is atomic: it either fully applies or has no
// effect, and concurrent callers never observe intermediate state.
type Ledger interface {
	// GetCounter returns the current counter for a flight, initialising it
	// lazily from catalog capacity on first access.
	GetCounter(ctx context.Context, flightID string) (*domain.SeatCounter, error)

	// TryReserve atomically checks availability and claims seats in the
	// held or booked bucket. Insufficient availability returns false with
	// no side effect; it is an expected outcome, not an error.
	TryReserve(ctx context.Context, flightID string, seats int, hold bool) (bool, error)

	// Release returns seats from the named bucket to availability.
	Release(ctx context.Context, flightID string, seats int, hold bool) error

	// ConvertHold moves seats from the held bucket to the booked bucket.
	// Availability is unchanged.
	ConvertHold(ctx context.Context, flightID string, seats int) error

	CreateBooking(ctx context.Context, booking *domain.Booking) error
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)

	// ListByUser returns a user's bookings ordered by creation time,
	// most recent first.
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)

	// ListHeldExpired returns HELD bookings whose deadline is at or before
	// asOf. Consumed by the expiration sweep.
	ListHeldExpired(ctx context.Context, asOf time.Time) ([]domain.Booking, error)

	// TransitionStatus applies from->to only if the booking is still in
	// from, clearing the hold deadline on any transition out of HELD and
	// recording reason on cancellation. A booking in any other state
	// returns domain.ErrInvalidState; this compare-and-set is what makes
	// racing transitions resolve to a single winner.
	TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus, reason string) (*domain.Booking, error)
}
