package handler // handler holds the echo HTTP handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/resort-booking/internal/model"
	"github.com/iliyamo/resort-booking/internal/payment"
	"github.com/iliyamo/resort-booking/internal/repository"
	"github.com/iliyamo/resort-booking/internal/service"
)

// writeError maps service and repository errors onto status codes.
// Anything unrecognised is logged and reported as an opaque 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var verr *service.ValidationError
	var gerr *payment.GatewayError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error()})
	case errors.Is(err, repository.ErrRoomNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrSoldOut):
		return c.JSON(http.StatusConflict, echo.Map{"error": "room is sold out for these dates"})
	case errors.Is(err, repository.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not pending"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	case errors.Is(err, service.ErrHoldExpired):
		return c.JSON(http.StatusConflict, echo.Map{"error": service.ErrHoldExpired.Error()})
	case errors.Is(err, payment.ErrSignatureMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment verification failed"})
	case errors.Is(err, service.ErrOrderMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.ErrOrderMismatch.Error()})
	case errors.As(err, &gerr):
		log.Error("payment gateway error", zap.String("gateway", gerr.Gateway), zap.String("op", gerr.Op), zap.Error(gerr.Err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway unavailable"})
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// bindAndValidate decodes the JSON body into req and runs the registered
// validator over it.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return &service.ValidationError{Msg: "invalid request body"}
	}
	return c.Validate(req)
}

func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &service.ValidationError{Field: name, Msg: "must be a positive integer"}
	}
	return id, nil
}

func parseDates(arrival, departure string) (time.Time, time.Time, error) {
	a, err := model.ParseDate(arrival)
	if err != nil {
		return time.Time{}, time.Time{}, &service.ValidationError{Field: "arrivalDate", Msg: "must be YYYY-MM-DD"}
	}
	d, err := model.ParseDate(departure)
	if err != nil {
		return time.Time{}, time.Time{}, &service.ValidationError{Field: "departureDate", Msg: "must be YYYY-MM-DD"}
	}
	return a, d, nil
}

// bookingView is the JSON shape of a booking.
type bookingView struct {
	BookingID        uint64     `json:"bookingId"`
	RoomID           uint64     `json:"roomId"`
	ArrivalDate      string     `json:"arrivalDate"`
	DepartureDate    string     `json:"departureDate"`
	NumberOfGuests   int        `json:"numberOfGuests"`
	TotalPrice       float64    `json:"totalPrice"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Status           string     `json:"status"`
	PaymentReference *string    `json:"paymentReference,omitempty"`
	PaymentID        *string    `json:"paymentId,omitempty"`
	HoldExpiresAt    *time.Time `json:"holdExpiresAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func viewBooking(b *model.Booking) bookingView {
	return bookingView{
		BookingID:        b.ID,
		RoomID:           b.RoomID,
		ArrivalDate:      b.ArrivalDate.Format(model.DateLayout),
		DepartureDate:    b.DepartureDate.Format(model.DateLayout),
		NumberOfGuests:   b.NumberOfGuests,
		TotalPrice:       b.TotalPrice,
		Name:             b.GuestName,
		Email:            b.GuestEmail,
		Status:           string(b.PaymentStatus),
		PaymentReference: b.PaymentReference,
		PaymentID:        b.PaymentID,
		HoldExpiresAt:    b.HoldExpiresAt,
		CreatedAt:        b.CreatedAt,
	}
}

func viewBookings(bs []model.Booking) []bookingView {
	out := make([]bookingView, 0, len(bs))
	for i := range bs {
		out = append(out, viewBooking(&bs[i]))
	}
	return out
}
