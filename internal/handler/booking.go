package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/resort-booking/internal/model"
	"github.com/iliyamo/resort-booking/internal/repository"
	"github.com/iliyamo/resort-booking/internal/service"
	"github.com/iliyamo/resort-booking/internal/utils"
)

// HeaderBookingToken carries the token returned by Reserve.  The token
// query parameter is accepted too.
const HeaderBookingToken = "X-Booking-Token"

// fullyBookedMessage is shown to guests when no room type fits their stay.
const fullyBookedMessage = "The resort is fully booked for your dates."

// AvailabilityChecker answers availability searches.
type AvailabilityChecker interface {
	Check(ctx context.Context, q service.AvailabilityQuery) (*service.AvailabilityResult, error)
}

// BookingFlow is the guest-facing part of the booking lifecycle.
type BookingFlow interface {
	CreatePendingBooking(ctx context.Context, in service.ReserveInput) (*model.Booking, error)
	CreatePaymentOrder(ctx context.Context, bookingID uint64, amount float64) (*service.PaymentOrder, error)
	ConfirmPayment(ctx context.Context, bookingID uint64, orderID, paymentID, signature string) (*model.Booking, error)
	ConfirmPaymentByOrder(ctx context.Context, orderID, paymentID, signature string) (*model.Booking, error)
	CancelBooking(ctx context.Context, id uint64) (*model.Booking, error)
	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
}

// BookingHandler serves /api/bookings.
type BookingHandler struct {
	Availability AvailabilityChecker
	Bookings     BookingFlow
	TokenSecret  string
	Log          *zap.Logger
}

// NewBookingHandler panics if a dependency is missing.
func NewBookingHandler(avail AvailabilityChecker, bookings BookingFlow, tokenSecret string, log *zap.Logger) *BookingHandler {
	if avail == nil || bookings == nil {
		panic("nil service passed to NewBookingHandler")
	}
	if tokenSecret == "" {
		panic("empty token secret passed to NewBookingHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{Availability: avail, Bookings: bookings, TokenSecret: tokenSecret, Log: log}
}

type availabilityReq struct {
	ArrivalDate    string `json:"arrivalDate" validate:"required"`
	DepartureDate  string `json:"departureDate" validate:"required"`
	NumberOfGuests int    `json:"numberOfGuests" validate:"required,min=1"`
}

type roomAvailabilityResp struct {
	RoomID         uint64  `json:"roomId"`
	Name           string  `json:"name"`
	Capacity       int     `json:"capacity"`
	AvailableCount int     `json:"availableCount"`
	Price          float64 `json:"price"`
}

// CheckAvailability handles POST /api/bookings/check-availability.
func (h *BookingHandler) CheckAvailability(c echo.Context) error {
	var req availabilityReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	arrival, departure, err := parseDates(req.ArrivalDate, req.DepartureDate)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	res, err := h.Availability.Check(c.Request().Context(), service.AvailabilityQuery{
		Arrival:   arrival,
		Departure: departure,
		Guests:    req.NumberOfGuests,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if res.Status == service.StatusFull {
		return c.JSON(http.StatusOK, echo.Map{"status": res.Status, "message": fullyBookedMessage})
	}
	rooms := make([]roomAvailabilityResp, 0, len(res.Rooms))
	for _, r := range res.Rooms {
		rooms = append(rooms, roomAvailabilityResp{
			RoomID:         r.RoomID,
			Name:           r.Name,
			Capacity:       r.Capacity,
			AvailableCount: r.AvailableCount,
			Price:          r.PricePerNight,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": res.Status, "rooms": rooms})
}

type reserveReq struct {
	RoomID         uint64  `json:"roomId" validate:"required"`
	ArrivalDate    string  `json:"arrivalDate" validate:"required"`
	DepartureDate  string  `json:"departureDate" validate:"required"`
	NumberOfGuests int     `json:"numberOfGuests" validate:"required,min=1"`
	Name           string  `json:"name" validate:"required,max=100"`
	Email          string  `json:"email" validate:"required,email,max=255"`
	Price          float64 `json:"price" validate:"gte=0"`
}

// Reserve handles POST /api/bookings/reserve.  The unit is held for the
// configured hold period while the guest pays.
func (h *BookingHandler) Reserve(c echo.Context) error {
	var req reserveReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	arrival, departure, err := parseDates(req.ArrivalDate, req.DepartureDate)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	b, err := h.Bookings.CreatePendingBooking(c.Request().Context(), service.ReserveInput{
		RoomID:    req.RoomID,
		Arrival:   arrival,
		Departure: departure,
		Guests:    req.NumberOfGuests,
		Name:      req.Name,
		Email:     req.Email,
		Price:     req.Price,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	resp := echo.Map{
		"bookingId":    b.ID,
		"bookingToken": utils.BookingToken(h.TokenSecret, b.ID),
		"amount":       b.TotalPrice,
		"status":       string(b.PaymentStatus),
	}
	if b.HoldExpiresAt != nil {
		resp["holdExpiresAt"] = b.HoldExpiresAt.UTC().Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}

// owned parses :id and checks the caller's booking token.  A wrong token
// looks the same as a missing booking.
func (h *BookingHandler) owned(c echo.Context) (uint64, bool, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return 0, false, writeError(c, h.Log, err)
	}
	tok := c.Request().Header.Get(HeaderBookingToken)
	if tok == "" {
		tok = c.QueryParam("token")
	}
	if tok == "" {
		return 0, false, c.JSON(http.StatusUnauthorized, echo.Map{"error": "booking token required"})
	}
	if !utils.VerifyBookingToken(h.TokenSecret, id, tok) {
		h.Log.Warn("booking token rejected", zap.Uint64("booking_id", id), zap.String("ip", c.RealIP()))
		return 0, false, writeError(c, h.Log, repository.ErrBookingNotFound)
	}
	return id, true, nil
}

// Get handles GET /api/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	id, ok, err := h.owned(c)
	if !ok {
		return err
	}
	b, err := h.Bookings.GetBooking(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, viewBooking(b))
}

// Cancel handles POST /api/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, ok, err := h.owned(c)
	if !ok {
		return err
	}
	b, err := h.Bookings.CancelBooking(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookingId": b.ID, "status": string(b.PaymentStatus)})
}
