package email

import (
	"context"

	"github.com/dkarpov/flightbooking/internal/kafka"
	"github.com/rs/zerolog/log"
)

// Sender delivers booking notifications to the passenger. The delivery
// backend is a log line for now; the worker feeds it from the
// notifications topic.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	log.Info().
		Str("to", event.PassengerEmail).
		Str("event", event.Type).
		Str("booking_id", event.BookingID).
		Str("flight_id", event.FlightID).
		Int("seats", event.Seats).
		Msg("sending booking notification email")
	return nil
}
