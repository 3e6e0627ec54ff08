package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dkarpov/flightbooking/internal/domain"
)

// MemoryLedger keeps counters and bookings in process memory with one mutex
// per flight counter and per booking record, so operations on unrelated
// flights or bookings never block each other. Capacity comes from the
// injected catalog on first touch of a flight.
type MemoryLedger struct {
	catalog FlightCatalog

	mu       sync.RWMutex
	counters map[string]*memCounter
	bookings map[string]*memBooking
	seq      uint64
}

type memCounter struct {
	mu sync.Mutex
	c  domain.SeatCounter
}

type memBooking struct {
	mu  sync.Mutex
	b   domain.Booking
	seq uint64
}

func NewMemoryLedger(catalog FlightCatalog) *MemoryLedger {
	return &MemoryLedger{
		catalog:  catalog,
		counters: make(map[string]*memCounter),
		bookings: make(map[string]*memBooking),
	}
}

func (l *MemoryLedger) counter(ctx context.Context, flightID string) (*memCounter, error) {
	l.mu.RLock()
	mc, ok := l.counters[flightID]
	l.mu.RUnlock()
	if ok {
		return mc, nil
	}

	capacity, err := l.catalog.Capacity(ctx, flightID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if mc, ok := l.counters[flightID]; ok {
		return mc, nil
	}
	mc = &memCounter{c: domain.SeatCounter{FlightID: flightID, Capacity: capacity}}
	l.counters[flightID] = mc
	return mc, nil
}

func (l *MemoryLedger) GetCounter(ctx context.Context, flightID string) (*domain.SeatCounter, error) {
	mc, err := l.counter(ctx, flightID)
	if err != nil {
		return nil, err
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	c := mc.c
	return &c, nil
}

func (l *MemoryLedger) TryReserve(ctx context.Context, flightID string, seats int, hold bool) (bool, error) {
	mc, err := l.counter(ctx, flightID)
	if err != nil {
		return false, err
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.c.Available() < seats {
		return false, nil
	}
	if hold {
		mc.c.SeatsHeld += seats
	} else {
		mc.c.SeatsBooked += seats
	}
	return true, nil
}

func (l *MemoryLedger) Release(ctx context.Context, flightID string, seats int, hold bool) error {
	mc, err := l.counter(ctx, flightID)
	if err != nil {
		return err
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if hold {
		mc.c.SeatsHeld -= seats
	} else {
		mc.c.SeatsBooked -= seats
	}
	return nil
}

func (l *MemoryLedger) ConvertHold(ctx context.Context, flightID string, seats int) error {
	mc, err := l.counter(ctx, flightID)
	if err != nil {
		return err
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.c.SeatsHeld < seats {
		return domain.NewStorageError("convert hold", errors.New("counter does not carry the held seats"))
	}
	mc.c.SeatsHeld -= seats
	mc.c.SeatsBooked += seats
	return nil
}

func (l *MemoryLedger) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.bookings[booking.ID]; ok {
		return domain.NewStorageError("create booking", errors.New("duplicate booking id "+booking.ID))
	}
	l.seq++
	l.bookings[booking.ID] = &memBooking{b: *booking, seq: l.seq}
	return nil
}

func (l *MemoryLedger) entry(id string) (*memBooking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	mb, ok := l.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return mb, nil
}

func (l *MemoryLedger) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	mb, err := l.entry(id)
	if err != nil {
		return nil, err
	}
	mb.mu.Lock()
	defer mb.mu.Unlock()
	b := mb.b
	return &b, nil
}

func (l *MemoryLedger) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	l.mu.RLock()
	entries := make([]*memBooking, 0, len(l.bookings))
	for _, mb := range l.bookings {
		entries = append(entries, mb)
	}
	l.mu.RUnlock()

	type seqBooking struct {
		seq uint64
		b   domain.Booking
	}
	var matched []seqBooking
	for _, mb := range entries {
		mb.mu.Lock()
		if mb.b.UserID == userID {
			matched = append(matched, seqBooking{seq: mb.seq, b: mb.b})
		}
		mb.mu.Unlock()
	}
	// Creation order, most recent first; the sequence number breaks
	// same-timestamp ties deterministically.
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })

	out := make([]domain.Booking, 0, len(matched))
	for _, m := range matched {
		out = append(out, m.b)
	}
	return out, nil
}

func (l *MemoryLedger) ListHeldExpired(ctx context.Context, asOf time.Time) ([]domain.Booking, error) {
	l.mu.RLock()
	entries := make([]*memBooking, 0, len(l.bookings))
	for _, mb := range l.bookings {
		entries = append(entries, mb)
	}
	l.mu.RUnlock()

	var out []domain.Booking
	for _, mb := range entries {
		mb.mu.Lock()
		if mb.b.Status == domain.BookingStatusHeld && mb.b.HoldExpiresAt != nil && !mb.b.HoldExpiresAt.After(asOf) {
			out = append(out, mb.b)
		}
		mb.mu.Unlock()
	}
	return out, nil
}

func (l *MemoryLedger) TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus, reason string) (*domain.Booking, error) {
	mb, err := l.entry(id)
	if err != nil {
		return nil, err
	}
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.b.Status != from {
		return nil, domain.ErrInvalidState
	}
	mb.b.Status = to
	mb.b.UpdatedAt = time.Now().UTC()
	mb.b.HoldExpiresAt = nil
	if reason != "" {
		mb.b.CancellationReason = reason
	}
	b := mb.b
	return &b, nil
}

var _ Ledger = (*MemoryLedger)(nil)
