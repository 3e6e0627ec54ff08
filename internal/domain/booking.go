package domain

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusHeld      BookingStatus = "HELD"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusExpired   BookingStatus = "EXPIRED"
)

// Terminal reports whether no further status transition is allowed.
// CONFIRMED still admits cancellation and is therefore not terminal.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusExpired
}

type Booking struct {
	ID                 string
	FlightID           string
	UserID             string
	PassengerName      string
	PassengerEmail     string
	Seats              int
	Status             BookingStatus
	HoldExpiresAt      *time.Time
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Held reports whether the booking currently occupies the held bucket
// of its flight's seat counter.
func (b *Booking) Held() bool {
	return b.Status == BookingStatusHeld
}

// HoldExpired reports whether the booking is a hold whose deadline has passed.
func (b *Booking) HoldExpired(now time.Time) bool {
	return b.Status == BookingStatusHeld && b.HoldExpiresAt != nil && now.After(*b.HoldExpiresAt)
}

// NewBookingID returns an identifier in the BK-XXXXXXXXXX format.
func NewBookingID() string {
	u := uuid.New()
	return "BK-" + strings.ToUpper(hex.EncodeToString(u[:])[:10])
}
