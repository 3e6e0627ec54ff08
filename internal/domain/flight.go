package domain

import "time"

type Flight struct {
	ID          string
	Origin      string
	Destination string
	Date        time.Time
	Airline     string
	PriceCents  int64
	Capacity    int
}

// SeatCounter aggregates the seat impact of all non-terminal bookings
// for one flight. Available never goes negative.
type SeatCounter struct {
	FlightID    string
	Capacity    int
	SeatsHeld   int
	SeatsBooked int
}

func (c SeatCounter) Available() int {
	return c.Capacity - c.SeatsHeld - c.SeatsBooked
}
