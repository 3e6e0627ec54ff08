package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dkarpov/flightbooking/internal/domain"
	"github.com/dkarpov/flightbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type bookFlightRequest struct {
	FlightID       string `json:"flight_id"`
	UserID         string `json:"user_id"`
	PassengerName  string `json:"passenger_name"`
	PassengerEmail string `json:"passenger_email"`
	Seats          int    `json:"seats"`
}

type holdFlightRequest struct {
	bookFlightRequest
	HoldMinutes float64 `json:"hold_minutes"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type bookingResponse struct {
	BookingID          string `json:"booking_id"`
	FlightID           string `json:"flight_id"`
	UserID             string `json:"user_id"`
	PassengerName      string `json:"passenger_name"`
	PassengerEmail     string `json:"passenger_email"`
	Seats              int    `json:"seats"`
	Status             string `json:"status"`
	HoldExpiresAt      string `json:"hold_expires_at,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/bookings", h.book)
	router.POST("/holds", h.hold)
	router.POST("/bookings/:id/confirm", h.confirm)
	router.POST("/bookings/:id/cancel", h.cancel)
	router.GET("/bookings/:id", h.get)
	router.GET("/users/:user_id/bookings", h.listByUser)
}

func (h *BookingHandler) book(c *gin.Context) {
	var req bookFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}

	created, err := h.service.Book(c.Request.Context(), booking.BookInput{
		FlightID:       req.FlightID,
		UserID:         req.UserID,
		PassengerName:  req.PassengerName,
		PassengerEmail: req.PassengerEmail,
		Seats:          req.Seats,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) hold(c *gin.Context) {
	var req holdFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}

	created, err := h.service.Hold(c.Request.Context(), booking.HoldInput{
		BookInput: booking.BookInput{
			FlightID:       req.FlightID,
			UserID:         req.UserID,
			PassengerName:  req.PassengerName,
			PassengerEmail: req.PassengerEmail,
			Seats:          req.Seats,
		},
		HoldTTL: time.Duration(req.HoldMinutes * float64(time.Minute)),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) confirm(c *gin.Context) {
	confirmed, err := h.service.ConfirmHold(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(confirmed))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	// The reason is optional, so a missing body is fine.
	var req cancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}

	cancelled, err := h.service.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(cancelled))
}

func (h *BookingHandler) get(c *gin.Context) {
	found, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(found))
}

func (h *BookingHandler) listByUser(c *gin.Context) {
	bookings, err := h.service.UserBookings(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	resp := bookingResponse{
		BookingID:          b.ID,
		FlightID:           b.FlightID,
		UserID:             b.UserID,
		PassengerName:      b.PassengerName,
		PassengerEmail:     b.PassengerEmail,
		Seats:              b.Seats,
		Status:             string(b.Status),
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          b.UpdatedAt.Format(time.RFC3339),
	}
	if b.HoldExpiresAt != nil {
		resp.HoldExpiresAt = b.HoldExpiresAt.Format(time.RFC3339)
	}
	return resp
}

// writeError maps the error taxonomy to HTTP. Business outcomes come back
// as structured codes the tool adapter shows to the user; anything else is
// an infrastructure failure worth alerting on.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": err.Error()})
	case errors.Is(err, domain.ErrSeatsUnavailable):
		c.JSON(http.StatusConflict, gin.H{"code": "seats_unavailable", "error": err.Error()})
	case errors.Is(err, domain.ErrHoldExpired):
		c.JSON(http.StatusConflict, gin.H{"code": "hold_expired", "error": err.Error()})
	case errors.Is(err, domain.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"code": "invalid_state", "error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "error": "internal error"})
	}
}
