package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dkarpov/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGLedger struct {
	db *pgxpool.Pool
}

func NewPGLedger(db *pgxpool.Pool) Ledger {
	return &PGLedger{db: db}
}

const bookingColumns = `id, flight_id, user_id, passenger_name, passenger_email, seats, status, hold_expires_at, cancellation_reason, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var reason *string
	if err := row.Scan(&b.ID, &b.FlightID, &b.UserID, &b.PassengerName, &b.PassengerEmail,
		&b.Seats, &b.Status, &b.HoldExpiresAt, &reason, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if reason != nil {
		b.CancellationReason = *reason
	}
	return &b, nil
}

// ensureCounter seeds the counter row from the flights table on first touch.
func (r *PGLedger) ensureCounter(ctx context.Context, tx pgx.Tx, flightID string) error {
	_, err := tx.Exec(ctx, `INSERT INTO seat_counters (flight_id, capacity)
		SELECT id, capacity FROM flights WHERE id = $1
		ON CONFLICT (flight_id) DO NOTHING`, flightID)
	return err
}

func (r *PGLedger) GetCounter(ctx context.Context, flightID string) (*domain.SeatCounter, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, domain.NewStorageError("get counter", err)
	}
	defer tx.Rollback(ctx)

	if err := r.ensureCounter(ctx, tx, flightID); err != nil {
		return nil, domain.NewStorageError("get counter", err)
	}

	var c domain.SeatCounter
	err = tx.QueryRow(ctx, `SELECT flight_id, capacity, seats_held, seats_booked FROM seat_counters WHERE flight_id = $1`, flightID).
		Scan(&c.FlightID, &c.Capacity, &c.SeatsHeld, &c.SeatsBooked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStorageError("get counter", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.NewStorageError("get counter", err)
	}
	return &c, nil
}

func (r *PGLedger) TryReserve(ctx context.Context, flightID string, seats int, hold bool) (bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, domain.NewStorageError("reserve seats", err)
	}
	defer tx.Rollback(ctx)

	if err := r.ensureCounter(ctx, tx, flightID); err != nil {
		return false, domain.NewStorageError("reserve seats", err)
	}

	// Check-and-increment in one statement; the row lock taken by UPDATE
	// makes the availability check and the claim a single atomic unit.
	cmd, err := tx.Exec(ctx, `UPDATE seat_counters
		SET seats_held = seats_held + CASE WHEN $3 THEN $2 ELSE 0 END,
		    seats_booked = seats_booked + CASE WHEN $3 THEN 0 ELSE $2 END
		WHERE flight_id = $1 AND capacity - seats_held - seats_booked >= $2`,
		flightID, seats, hold)
	if err != nil {
		return false, domain.NewStorageError("reserve seats", err)
	}
	if cmd.RowsAffected() == 0 {
		return false, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return false, domain.NewStorageError("reserve seats", err)
	}
	return true, nil
}

func (r *PGLedger) Release(ctx context.Context, flightID string, seats int, hold bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE seat_counters
		SET seats_held = seats_held - CASE WHEN $3 THEN $2 ELSE 0 END,
		    seats_booked = seats_booked - CASE WHEN $3 THEN 0 ELSE $2 END
		WHERE flight_id = $1`, flightID, seats, hold)
	if err != nil {
		return domain.NewStorageError("release seats", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGLedger) ConvertHold(ctx context.Context, flightID string, seats int) error {
	cmd, err := r.db.Exec(ctx, `UPDATE seat_counters
		SET seats_held = seats_held - $2, seats_booked = seats_booked + $2
		WHERE flight_id = $1 AND seats_held >= $2`, flightID, seats)
	if err != nil {
		return domain.NewStorageError("convert hold", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NewStorageError("convert hold", errors.New("counter does not carry the held seats"))
	}
	return nil
}

func (r *PGLedger) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	err := r.db.QueryRow(ctx, `INSERT INTO bookings (id, flight_id, user_id, passenger_name, passenger_email, seats, status, hold_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		booking.ID, booking.FlightID, booking.UserID, booking.PassengerName, booking.PassengerEmail,
		booking.Seats, booking.Status, booking.HoldExpiresAt).
		Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return domain.NewStorageError("create booking", err)
	}
	return nil
}

func (r *PGLedger) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStorageError("get booking", err)
	}
	return b, nil
}

func (r *PGLedger) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, domain.NewStorageError("list bookings", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *PGLedger) ListHeldExpired(ctx context.Context, asOf time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE status = $1 AND hold_expires_at <= $2`, domain.BookingStatusHeld, asOf)
	if err != nil {
		return nil, domain.NewStorageError("list expired holds", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, domain.NewStorageError("scan booking", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("scan booking", err)
	}
	return out, nil
}

func (r *PGLedger) TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus, reason string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings
		SET status = $1, updated_at = now(), hold_expires_at = NULL,
		    cancellation_reason = NULLIF($2, '')
		WHERE id = $3 AND status = $4
		RETURNING `+bookingColumns, to, reason, id, from))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewStorageError("transition status", err)
	}

	// The compare-and-set missed: either the booking does not exist or a
	// concurrent transition already moved it out of the expected state.
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, domain.NewStorageError("transition status", err)
	}
	if !exists {
		return nil, domain.ErrNotFound
	}
	return nil, domain.ErrInvalidState
}

var _ Ledger = (*PGLedger)(nil)
