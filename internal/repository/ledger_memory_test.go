package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dkarpov/flightbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlight(id string, capacity int) domain.Flight {
	return domain.Flight{
		ID:          id,
		Origin:      "ATH",
		Destination: "CDG",
		Date:        time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		Airline:     "EuroSky",
		PriceCents:  12900,
		Capacity:    capacity,
	}
}

func newTestLedger(flights ...domain.Flight) *MemoryLedger {
	return NewMemoryLedger(NewMemoryFlightCatalog(flights...))
}

func TestMemoryLedger_TryReserveRespectsCapacity(t *testing.T) {
	ledger := newTestLedger(testFlight("FL-000001", 3))
	ctx := context.Background()

	ok, err := ledger.TryReserve(ctx, "FL-000001", 2, false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.TryReserve(ctx, "FL-000001", 2, true)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ledger.TryReserve(ctx, "FL-000001", 1, true)
	require.NoError(t, err)
	assert.True(t, ok)

	counter, err := ledger.GetCounter(ctx, "FL-000001")
	require.NoError(t, err)
	assert.Equal(t, 2, counter.SeatsBooked)
	assert.Equal(t, 1, counter.SeatsHeld)
	assert.Equal(t, 0, counter.Available())
}

func TestMemoryLedger_TryReserveUnknownFlight(t *testing.T) {
	ledger := newTestLedger()

	_, err := ledger.TryReserve(context.Background(), "FL-999999", 1, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryLedger_ReleaseRestoresAvailability(t *testing.T) {
	ledger := newTestLedger(testFlight("FL-000002", 5))
	ctx := context.Background()

	_, err := ledger.TryReserve(ctx, "FL-000002", 2, true)
	require.NoError(t, err)
	_, err = ledger.TryReserve(ctx, "FL-000002", 2, false)
	require.NoError(t, err)

	require.NoError(t, ledger.Release(ctx, "FL-000002", 2, true))
	require.NoError(t, ledger.Release(ctx, "FL-000002", 2, false))

	counter, err := ledger.GetCounter(ctx, "FL-000002")
	require.NoError(t, err)
	assert.Equal(t, 0, counter.SeatsHeld)
	assert.Equal(t, 0, counter.SeatsBooked)
	assert.Equal(t, 5, counter.Available())
}

func TestMemoryLedger_ConvertHold(t *testing.T) {
	ledger := newTestLedger(testFlight("FL-000003", 4))
	ctx := context.Background()

	_, err := ledger.TryReserve(ctx, "FL-000003", 3, true)
	require.NoError(t, err)

	require.NoError(t, ledger.ConvertHold(ctx, "FL-000003", 3))

	counter, err := ledger.GetCounter(ctx, "FL-000003")
	require.NoError(t, err)
	assert.Equal(t, 0, counter.SeatsHeld)
	assert.Equal(t, 3, counter.SeatsBooked)
	assert.Equal(t, 1, counter.Available())

	// The held bucket is empty now, converting again must fail.
	assert.Error(t, ledger.ConvertHold(ctx, "FL-000003", 1))
}

func TestMemoryLedger_ConcurrentReserveNeverOverbooks(t *testing.T) {
	const capacity = 10
	const callers = 100

	ledger := newTestLedger(testFlight("FL-000004", capacity))
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := ledger.TryReserve(ctx, "FL-000004", 1, n%2 == 0)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, granted)

	counter, err := ledger.GetCounter(ctx, "FL-000004")
	require.NoError(t, err)
	assert.Equal(t, capacity, counter.SeatsHeld+counter.SeatsBooked)
	assert.Equal(t, 0, counter.Available())
}

func TestMemoryLedger_CreateBookingDuplicateID(t *testing.T) {
	ledger := newTestLedger(testFlight("FL-000005", 2))
	ctx := context.Background()

	b := &domain.Booking{ID: "BK-AABBCCDDEE", FlightID: "FL-000005", UserID: "u1", Seats: 1, Status: domain.BookingStatusConfirmed}
	require.NoError(t, ledger.CreateBooking(ctx, b))
	assert.False(t, b.CreatedAt.IsZero())

	dup := &domain.Booking{ID: "BK-AABBCCDDEE", FlightID: "FL-000005", UserID: "u1", Seats: 1, Status: domain.BookingStatusConfirmed}
	assert.Error(t, ledger.CreateBooking(ctx, dup))
}

func TestMemoryLedger_GetBookingNotFound(t *testing.T) {
	ledger := newTestLedger()

	_, err := ledger.GetBooking(context.Background(), "BK-MISSING000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryLedger_ListByUserMostRecentFirst(t *testing.T) {
	ledger := newTestLedger(testFlight("FL-000006", 10))
	ctx := context.Background()

	ids := []string{"BK-0000000001", "BK-0000000002", "BK-0000000003"}
	for _, id := range ids {
		require.NoError(t, ledger.CreateBooking(ctx, &domain.Booking{
			ID: id, FlightID: "FL-000006", UserID: "u1", Seats: 1, Status: domain.BookingStatusConfirmed,
		}))
	}
	require.NoError(t, ledger.CreateBooking(ctx, &domain.Booking{
		ID: "BK-OTHERUSER0", FlightID: "FL-000006", UserID: "u2", Seats: 1, Status: domain.BookingStatusConfirmed,
	}))

	out, err := ledger.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "BK-0000000003", out[0].ID)
	assert.Equal(t, "BK-0000000002", out[1].ID)
	assert.Equal(t, "BK-0000000001", out[2].ID)

	none, err := ledger.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryLedger_ListHeldExpired(t *testing.T) {
	ledger := newTestLedger(testFlight("FL-000007", 10))
	ctx := context.Background()

	asOf := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	past := asOf.Add(-time.Minute)
	future := asOf.Add(time.Minute)

	require.NoError(t, ledger.CreateBooking(ctx, &domain.Booking{
		ID: "BK-OVERDUE000", FlightID: "FL-000007", UserID: "u1", Seats: 1,
		Status: domain.BookingStatusHeld, HoldExpiresAt: &past,
	}))
	require.NoError(t, ledger.CreateBooking(ctx, &domain.Booking{
		ID: "BK-ONEDGE0000", FlightID: "FL-000007", UserID: "u1", Seats: 1,
		Status: domain.BookingStatusHeld, HoldExpiresAt: &asOf,
	}))
	require.NoError(t, ledger.CreateBooking(ctx, &domain.Booking{
		ID: "BK-STILLGOOD0", FlightID: "FL-000007", UserID: "u1", Seats: 1,
		Status: domain.BookingStatusHeld, HoldExpiresAt: &future,
	}))
	require.NoError(t, ledger.CreateBooking(ctx, &domain.Booking{
		ID: "BK-CONFIRMED0", FlightID: "FL-000007", UserID: "u1", Seats: 1,
		Status: domain.BookingStatusConfirmed,
	}))

	out, err := ledger.ListHeldExpired(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, out, 2)
	got := map[string]bool{}
	for _, b := range out {
		got[b.ID] = true
	}
	assert.True(t, got["BK-OVERDUE000"])
	assert.True(t, got["BK-ONEDGE0000"])
}

func TestMemoryLedger_TransitionStatus(t *testing.T) {
	ledger := newTestLedger(testFlight("FL-000008", 10))
	ctx := context.Background()

	deadline := time.Now().Add(time.Hour)
	require.NoError(t, ledger.CreateBooking(ctx, &domain.Booking{
		ID: "BK-TRANSIT000", FlightID: "FL-000008", UserID: "u1", Seats: 1,
		Status: domain.BookingStatusHeld, HoldExpiresAt: &deadline,
	}))

	updated, err := ledger.TransitionStatus(ctx, "BK-TRANSIT000", domain.BookingStatusHeld, domain.BookingStatusConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, updated.Status)
	assert.Nil(t, updated.HoldExpiresAt)

	_, err = ledger.TransitionStatus(ctx, "BK-TRANSIT000", domain.BookingStatusHeld, domain.BookingStatusExpired, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	cancelled, err := ledger.TransitionStatus(ctx, "BK-TRANSIT000", domain.BookingStatusConfirmed, domain.BookingStatusCancelled, "schedule change")
	require.NoError(t, err)
	assert.Equal(t, "schedule change", cancelled.CancellationReason)

	_, err = ledger.TransitionStatus(ctx, "BK-MISSING000", domain.BookingStatusHeld, domain.BookingStatusExpired, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Many writers racing the same compare-and-set: exactly one transition wins.
func TestMemoryLedger_TransitionStatusSingleWinner(t *testing.T) {
	ledger := newTestLedger(testFlight("FL-000009", 10))
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		id := domain.NewBookingID()
		deadline := time.Now().Add(time.Hour)
		require.NoError(t, ledger.CreateBooking(ctx, &domain.Booking{
			ID: id, FlightID: "FL-000009", UserID: "u1", Seats: 1,
			Status: domain.BookingStatusHeld, HoldExpiresAt: &deadline,
		}))

		targets := []domain.BookingStatus{domain.BookingStatusConfirmed, domain.BookingStatusExpired}
		var wg sync.WaitGroup
		results := make([]error, len(targets))
		for n, to := range targets {
			wg.Add(1)
			go func(n int, to domain.BookingStatus) {
				defer wg.Done()
				_, results[n] = ledger.TransitionStatus(ctx, id, domain.BookingStatusHeld, to, "")
			}(n, to)
		}
		wg.Wait()

		winners := 0
		for _, err := range results {
			if err == nil {
				winners++
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidState)
			}
		}
		require.Equal(t, 1, winners, "iteration %d", i)

		final, err := ledger.GetBooking(ctx, id)
		require.NoError(t, err)
		assert.True(t, final.Status == domain.BookingStatusConfirmed || final.Status == domain.BookingStatusExpired)
	}
}
