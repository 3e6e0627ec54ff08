package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkarpov/flightbooking/internal/domain"
	"github.com/dkarpov/flightbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) Book(ctx context.Context, input booking.BookInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Hold(ctx context.Context, input booking.HoldInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ConfirmHold(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Cancel(ctx context.Context, id, reason string) (*domain.Booking, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) UserBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ExpireHeldBookings(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func confirmedBooking(id string) *domain.Booking {
	now := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	return &domain.Booking{
		ID:             id,
		FlightID:       "FL-000001",
		UserID:         "user-1",
		PassengerName:  "Ada Lovelace",
		PassengerEmail: "ada@example.com",
		Seats:          2,
		Status:         domain.BookingStatusConfirmed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestBookingHandler_book(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := bookFlightRequest{
		FlightID:       "FL-000001",
		UserID:         "user-1",
		PassengerName:  "Ada Lovelace",
		PassengerEmail: "ada@example.com",
		Seats:          2,
	}
	body, _ := json.Marshal(req)
	c.Request = httptest.NewRequest("POST", "/bookings", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	expected := confirmedBooking("BK-AAAA111122")
	mockService.On("Book", c.Request.Context(), booking.BookInput{
		FlightID:       "FL-000001",
		UserID:         "user-1",
		PassengerName:  "Ada Lovelace",
		PassengerEmail: "ada@example.com",
		Seats:          2,
	}).Return(expected, nil)

	handler.book(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp bookingResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "BK-AAAA111122", resp.BookingID)
	assert.Equal(t, "CONFIRMED", resp.Status)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_book_seatsUnavailable(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(bookFlightRequest{FlightID: "FL-000001", UserID: "user-1", PassengerName: "A", PassengerEmail: "a@b.c", Seats: 5})
	c.Request = httptest.NewRequest("POST", "/bookings", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	mockService.On("Book", c.Request.Context(), mock.Anything).Return(nil, domain.ErrSeatsUnavailable)

	handler.book(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "seats_unavailable")
	mockService.AssertExpectations(t)
}

func TestBookingHandler_hold(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body := []byte(`{"flight_id":"FL-000001","user_id":"user-1","passenger_name":"Ada Lovelace","passenger_email":"ada@example.com","seats":1,"hold_minutes":30}`)
	c.Request = httptest.NewRequest("POST", "/holds", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	deadline := time.Date(2026, time.January, 15, 12, 30, 0, 0, time.UTC)
	held := confirmedBooking("BK-BBBB222233")
	held.Seats = 1
	held.Status = domain.BookingStatusHeld
	held.HoldExpiresAt = &deadline

	mockService.On("Hold", c.Request.Context(), booking.HoldInput{
		BookInput: booking.BookInput{
			FlightID:       "FL-000001",
			UserID:         "user-1",
			PassengerName:  "Ada Lovelace",
			PassengerEmail: "ada@example.com",
			Seats:          1,
		},
		HoldTTL: 30 * time.Minute,
	}).Return(held, nil)

	handler.hold(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp bookingResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "HELD", resp.Status)
	assert.Equal(t, "2026-01-15T12:30:00Z", resp.HoldExpiresAt)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_confirm(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("POST", "/bookings/BK-CCCC333344/confirm", nil)
	c.Params = gin.Params{{Key: "id", Value: "BK-CCCC333344"}}

	mockService.On("ConfirmHold", c.Request.Context(), "BK-CCCC333344").Return(confirmedBooking("BK-CCCC333344"), nil)

	handler.confirm(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_confirm_expired(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("POST", "/bookings/BK-CCCC333344/confirm", nil)
	c.Params = gin.Params{{Key: "id", Value: "BK-CCCC333344"}}

	mockService.On("ConfirmHold", c.Request.Context(), "BK-CCCC333344").Return(nil, domain.ErrHoldExpired)

	handler.confirm(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "hold_expired")
	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancel(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(cancelBookingRequest{Reason: "plans changed"})
	c.Request = httptest.NewRequest("POST", "/bookings/BK-DDDD444455/cancel", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "BK-DDDD444455"}}

	cancelled := confirmedBooking("BK-DDDD444455")
	cancelled.Status = domain.BookingStatusCancelled
	cancelled.CancellationReason = "plans changed"

	mockService.On("Cancel", c.Request.Context(), "BK-DDDD444455", "plans changed").Return(cancelled, nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp bookingResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CANCELLED", resp.Status)
	assert.Equal(t, "plans changed", resp.CancellationReason)
	mockService.AssertExpectations(t)
}

// Cancelling without a body records an empty reason instead of failing.
func TestBookingHandler_cancel_emptyBody(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("POST", "/bookings/BK-DDDD444455/cancel", nil)
	c.Params = gin.Params{{Key: "id", Value: "BK-DDDD444455"}}

	cancelled := confirmedBooking("BK-DDDD444455")
	cancelled.Status = domain.BookingStatusCancelled

	mockService.On("Cancel", c.Request.Context(), "BK-DDDD444455", "").Return(cancelled, nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_get_notFound(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/bookings/BK-MISSING000", nil)
	c.Params = gin.Params{{Key: "id", Value: "BK-MISSING000"}}

	mockService.On("GetBooking", c.Request.Context(), "BK-MISSING000").Return(nil, domain.ErrNotFound)

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
	mockService.AssertExpectations(t)
}

func TestBookingHandler_listByUser(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/users/user-1/bookings", nil)
	c.Params = gin.Params{{Key: "user_id", Value: "user-1"}}

	bookings := []domain.Booking{*confirmedBooking("BK-EEEE555566"), *confirmedBooking("BK-FFFF666677")}
	mockService.On("UserBookings", c.Request.Context(), "user-1").Return(bookings, nil)

	handler.listByUser(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Bookings []bookingResponse `json:"bookings"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Bookings, 2)
	mockService.AssertExpectations(t)
}
