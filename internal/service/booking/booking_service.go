package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkarpov/flightbooking/internal/domain"
	"github.com/dkarpov/flightbooking/internal/kafka"
	"github.com/dkarpov/flightbooking/internal/repository"
	"github.com/rs/zerolog/log"
)

type BookingUseCase interface {
	Book(ctx context.Context, input BookInput) (*domain.Booking, error)
	Hold(ctx context.Context, input HoldInput) (*domain.Booking, error)
	ConfirmHold(ctx context.Context, bookingID string) (*domain.Booking, error)
	Cancel(ctx context.Context, bookingID, reason string) (*domain.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	UserBookings(ctx context.Context, userID string) ([]domain.Booking, error)
	ExpireHeldBookings(ctx context.Context) ([]domain.Booking, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// BookingService enforces the booking state machine on top of the ledger.
// Seats are claimed at creation time, for holds as well as direct bookings,
// so an outstanding hold can never be sold to a second caller.
type BookingService struct {
	ledger             repository.Ledger
	catalog            repository.FlightCatalog
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	maxHoldTTL         time.Duration
	expiryGrace        time.Duration
	now                func() time.Time
}

type BookInput struct {
	FlightID       string `json:"flight_id"`
	UserID         string `json:"user_id"`
	PassengerName  string `json:"passenger_name"`
	PassengerEmail string `json:"passenger_email"`
	Seats          int    `json:"seats"`
}

type HoldInput struct {
	BookInput
	HoldTTL time.Duration `json:"-"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithExpiryGrace sets how far past its deadline a hold must be before the
// sweep collects it. A racing confirm inside the window is favoured.
func WithExpiryGrace(grace time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if grace > 0 {
			s.expiryGrace = grace
		}
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

const (
	defaultMaxHoldTTL  = 24 * time.Hour
	defaultExpiryGrace = 2 * time.Second
)

func NewBookingService(
	ledger repository.Ledger,
	catalog repository.FlightCatalog,
	producer Producer,
	bookingTopic string,
	maxHoldTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	if maxHoldTTL <= 0 {
		maxHoldTTL = defaultMaxHoldTTL
	}
	service := &BookingService{
		ledger:       ledger,
		catalog:      catalog,
		producer:     producer,
		bookingTopic: bookingTopic,
		maxHoldTTL:   maxHoldTTL,
		expiryGrace:  defaultExpiryGrace,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (in BookInput) validate() error {
	if in.FlightID == "" {
		return fmt.Errorf("%w: flight_id is required", domain.ErrValidation)
	}
	if in.UserID == "" {
		return fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	if in.PassengerName == "" {
		return fmt.Errorf("%w: passenger_name is required", domain.ErrValidation)
	}
	if in.PassengerEmail == "" {
		return fmt.Errorf("%w: passenger_email is required", domain.ErrValidation)
	}
	if in.Seats < 1 {
		return fmt.Errorf("%w: seats must be at least 1", domain.ErrValidation)
	}
	return nil
}

func (s *BookingService) Book(ctx context.Context, input BookInput) (*domain.Booking, error) {
	return s.create(ctx, input, nil)
}

func (s *BookingService) Hold(ctx context.Context, input HoldInput) (*domain.Booking, error) {
	if input.HoldTTL <= 0 {
		return nil, fmt.Errorf("%w: hold duration must be positive", domain.ErrValidation)
	}
	if input.HoldTTL > s.maxHoldTTL {
		return nil, fmt.Errorf("%w: hold duration exceeds the maximum of %s", domain.ErrValidation, s.maxHoldTTL)
	}
	deadline := s.now().Add(input.HoldTTL)
	return s.create(ctx, input.BookInput, &deadline)
}

// create runs the shared reservation path. A nil deadline produces a
// directly confirmed booking, otherwise a hold expiring at the deadline.
// Seats are claimed before the record is written; a failed record write
// rolls the claim back so a failed creation leaves no trace.
func (s *BookingService) create(ctx context.Context, input BookInput, deadline *time.Time) (*domain.Booking, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	exists, err := s.catalog.Exists(ctx, input.FlightID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("flight %s: %w", input.FlightID, domain.ErrNotFound)
	}

	hold := deadline != nil
	ok, err := s.ledger.TryReserve(ctx, input.FlightID, input.Seats, hold)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("flight %s: %w", input.FlightID, domain.ErrSeatsUnavailable)
	}

	booking := &domain.Booking{
		ID:             domain.NewBookingID(),
		FlightID:       input.FlightID,
		UserID:         input.UserID,
		PassengerName:  input.PassengerName,
		PassengerEmail: input.PassengerEmail,
		Seats:          input.Seats,
		Status:         domain.BookingStatusConfirmed,
	}
	eventType := "booking_confirmed"
	if hold {
		booking.Status = domain.BookingStatusHeld
		booking.HoldExpiresAt = deadline
		eventType = "booking_held"
	}

	if err := s.ledger.CreateBooking(ctx, booking); err != nil {
		if rerr := s.ledger.Release(ctx, input.FlightID, input.Seats, hold); rerr != nil {
			log.Error().Err(rerr).Str("flight_id", input.FlightID).Int("seats", input.Seats).
				Msg("failed to roll back reservation after create failure")
		}
		return nil, err
	}

	s.publish(ctx, eventType, booking)
	return booking, nil
}

func (s *BookingService) ConfirmHold(ctx context.Context, bookingID string) (*domain.Booking, error) {
	current, err := s.ledger.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.BookingStatusHeld {
		return nil, fmt.Errorf("booking %s is %s: %w", bookingID, current.Status, domain.ErrInvalidState)
	}

	if current.HoldExpired(s.now()) {
		// A late confirm performs the same expiry transition a sweep pass
		// would, so the seats it no longer holds are reclaimed right here.
		if _, err := s.expire(ctx, current); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("booking %s: %w", bookingID, domain.ErrHoldExpired)
	}

	updated, err := s.ledger.TransitionStatus(ctx, bookingID, domain.BookingStatusHeld, domain.BookingStatusConfirmed, "")
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			// Lost the race against a concurrent transition; report the
			// state the winner left behind.
			if cur, gerr := s.ledger.GetBooking(ctx, bookingID); gerr == nil && cur.Status == domain.BookingStatusExpired {
				return nil, fmt.Errorf("booking %s: %w", bookingID, domain.ErrHoldExpired)
			}
			return nil, fmt.Errorf("booking %s: %w", bookingID, domain.ErrInvalidState)
		}
		return nil, err
	}

	// Availability is untouched: the seats were claimed at hold time and
	// only move between counter buckets here. A failed move is a storage
	// failure the caller must see, or the counter drifts with no repair path.
	if err := s.ledger.ConvertHold(ctx, updated.FlightID, updated.Seats); err != nil {
		return nil, err
	}

	s.publish(ctx, "booking_confirmed", updated)
	return updated, nil
}

func (s *BookingService) Cancel(ctx context.Context, bookingID, reason string) (*domain.Booking, error) {
	current, err := s.ledger.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, fmt.Errorf("booking %s is already %s: %w", bookingID, current.Status, domain.ErrInvalidState)
	}

	wasHeld := current.Held()
	updated, err := s.ledger.TransitionStatus(ctx, bookingID, current.Status, domain.BookingStatusCancelled, reason)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			return nil, fmt.Errorf("booking %s: %w", bookingID, domain.ErrInvalidState)
		}
		return nil, err
	}

	// The seats of a CANCELLED booking are never revisited, so a failed
	// release must surface rather than leak them.
	if err := s.ledger.Release(ctx, updated.FlightID, updated.Seats, wasHeld); err != nil {
		return nil, err
	}

	s.publish(ctx, "booking_cancelled", updated)
	return updated, nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	return s.ledger.GetBooking(ctx, bookingID)
}

func (s *BookingService) UserBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	return s.ledger.ListByUser(ctx, userID)
}

// ExpireHeldBookings runs one sweep pass over holds whose deadline is past
// by more than the grace window. A failure on one booking does not abort the
// pass; the booking is retried on the next one.
func (s *BookingService) ExpireHeldBookings(ctx context.Context) ([]domain.Booking, error) {
	overdue, err := s.ledger.ListHeldExpired(ctx, s.now().Add(-s.expiryGrace))
	if err != nil {
		return nil, err
	}

	var expired []domain.Booking
	for i := range overdue {
		updated, err := s.expire(ctx, &overdue[i])
		if err != nil {
			log.Error().Err(err).Str("booking_id", overdue[i].ID).Msg("failed to expire hold")
			continue
		}
		if updated != nil {
			expired = append(expired, *updated)
		}
	}
	return expired, nil
}

// expire transitions a hold to EXPIRED and releases its seats. The status
// compare-and-set guarantees a single winner against a racing confirm or a
// repeated sweep, so the counter is adjusted exactly once; losing the race
// returns (nil, nil) and is not an error.
func (s *BookingService) expire(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	updated, err := s.ledger.TransitionStatus(ctx, b.ID, domain.BookingStatusHeld, domain.BookingStatusExpired, "")
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			return nil, nil
		}
		return nil, err
	}
	if err := s.ledger.Release(ctx, updated.FlightID, updated.Seats, true); err != nil {
		return updated, err
	}
	s.publish(ctx, "booking_expired", updated)
	return updated, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:           eventType,
		BookingID:      booking.ID,
		FlightID:       booking.FlightID,
		UserID:         booking.UserID,
		PassengerEmail: booking.PassengerEmail,
		Seats:          booking.Seats,
		Status:         string(booking.Status),
		HoldExpiresAt:  booking.HoldExpiresAt,
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.ID, event); err != nil {
		log.Warn().Err(err).Str("booking_id", booking.ID).Str("event", eventType).Msg("failed to publish booking event")
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.ID, event); err != nil {
			log.Warn().Err(err).Str("booking_id", booking.ID).Str("event", eventType).Msg("failed to publish notification event")
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
