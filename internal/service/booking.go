package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iliyamo/resort-booking/internal/metrics"
	"github.com/iliyamo/resort-booking/internal/model"
	"github.com/iliyamo/resort-booking/internal/payment"
	"github.com/iliyamo/resort-booking/internal/queue"
	"github.com/iliyamo/resort-booking/internal/repository"
)

// priceTolerance absorbs float rounding when comparing client prices.
const priceTolerance = 0.005

var validate = validator.New()

// Settings are the tunables of the booking lifecycle.
type Settings struct {
	HoldTTL       time.Duration // 0 disables inventory holds
	MaxStayNights int
	Currency      string
}

// ReserveInput is a guest's reservation request.  Price is the total for
// the stay; zero lets the service compute it.
type ReserveInput struct {
	RoomID    uint64
	Arrival   time.Time
	Departure time.Time
	Guests    int
	Name      string
	Email     string
	Price     float64
}

// PaymentOrder is what the browser checkout needs to take payment.
type PaymentOrder struct {
	OrderID      string
	BookingID    uint64
	Amount       float64
	Currency     string
	Gateway      string
	KeyID        string
	ClientSecret string
}

// BookingService drives a booking from PENDING through payment to PAID.
type BookingService struct {
	rooms    RoomCatalog
	bookings BookingLedger
	gateway  payment.Gateway
	cfg      Settings
	options
}

// NewBookingService wires the service.
func NewBookingService(rooms RoomCatalog, bookings BookingLedger, gw payment.Gateway, cfg Settings, opts ...Option) *BookingService {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &BookingService{rooms: rooms, bookings: bookings, gateway: gw, cfg: cfg, options: buildOptions(opts)}
}

func samePrice(a, b float64) bool { return math.Abs(a-b) < priceTolerance }

// CreatePendingBooking validates the request, reserves a unit and
// returns the new PENDING booking.  ErrSoldOut means the last unit went
// to someone else.
func (s *BookingService) CreatePendingBooking(ctx context.Context, in ReserveInput) (*model.Booking, error) {
	b, err := s.reserve(ctx, in)
	switch {
	case err == nil:
		metrics.Reservations.WithLabelValues("created").Inc()
	case errors.Is(err, repository.ErrSoldOut):
		metrics.Reservations.WithLabelValues("sold_out").Inc()
	default:
		var verr *ValidationError
		if errors.As(err, &verr) {
			metrics.Reservations.WithLabelValues("invalid").Inc()
		} else {
			metrics.Reservations.WithLabelValues("error").Inc()
		}
	}
	return b, err
}

func (s *BookingService) reserve(ctx context.Context, in ReserveInput) (*model.Booking, error) {
	stay, err := validateStay(in.Arrival, in.Departure, s.cfg.MaxStayNights)
	if err != nil {
		return nil, err
	}
	if in.Guests < 1 {
		return nil, invalid("numberOfGuests", "must be at least 1")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	email := strings.TrimSpace(in.Email)
	if err := validate.Var(email, "required,email,max=255"); err != nil {
		return nil, invalid("email", "is not a valid email address")
	}
	if in.Price < 0 {
		return nil, invalid("price", "must not be negative")
	}
	room, err := s.rooms.GetByID(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.Fits(in.Guests) {
		return nil, invalid("numberOfGuests", "room %q sleeps at most %d guests", room.Name, room.Capacity)
	}
	total := math.Round(room.PriceFor(stay)*100) / 100
	if in.Price != 0 && !samePrice(in.Price, total) {
		return nil, invalid("price", "expected %.2f for %d nights", total, stay.Nights())
	}

	now := s.clock()
	b := &model.Booking{
		RoomID:         room.ID,
		ArrivalDate:    stay.Arrival,
		DepartureDate:  stay.Departure,
		NumberOfGuests: in.Guests,
		TotalPrice:     total,
		GuestName:      name,
		GuestEmail:     email,
		PaymentStatus:  model.PaymentPending,
	}
	if s.cfg.HoldTTL > 0 {
		hold := now.Add(s.cfg.HoldTTL)
		b.HoldExpiresAt = &hold
	}
	if err := s.bookings.ReserveTx(ctx, b, now); err != nil {
		if errors.Is(err, repository.ErrSoldOut) {
			s.log.Info("reservation rejected, sold out", zap.Uint64("room_id", room.ID), zap.String("stay", stay.String()))
			return nil, err
		}
		return nil, fmt.Errorf("reserve: %w", err)
	}
	s.log.Info("booking reserved",
		zap.Uint64("booking_id", b.ID),
		zap.Uint64("room_id", b.RoomID),
		zap.String("stay", stay.String()),
		zap.Float64("total", b.TotalPrice))

	if s.scheduler != nil && b.HoldExpiresAt != nil {
		if err := s.scheduler.ScheduleHoldExpiry(ctx, b.ID, *b.HoldExpiresAt); err != nil {
			// Lapsed holds are also expired lazily on the next reservation.
			s.log.Warn("schedule hold expiry failed", zap.Uint64("booking_id", b.ID), zap.Error(err))
		}
	}
	return b, nil
}

// CreatePaymentOrder opens a gateway order for the booking's total and
// records the order id on the booking.  amount, when non-zero, must equal
// the booking total.  A booking that already has an order gets that order
// back, so a payment against it can still be confirmed.
func (s *BookingService) CreatePaymentOrder(ctx context.Context, bookingID uint64, amount float64) (*PaymentOrder, error) {
	gw := s.gateway.Name()
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus != model.PaymentPending {
		return nil, repository.ErrInvalidState
	}
	now := s.clock()
	if b.HoldExpiresAt != nil && !b.HoldActive(now) && b.PaymentReference == nil {
		return nil, ErrHoldExpired
	}
	if amount != 0 && !samePrice(amount, b.TotalPrice) {
		return nil, invalid("amount", "does not match booking total %.2f", b.TotalPrice)
	}
	if b.PaymentReference != nil {
		return s.resumeOrder(ctx, b)
	}
	order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{BookingID: b.ID, Amount: b.TotalPrice, Currency: s.cfg.Currency})
	if err != nil {
		metrics.PaymentOrders.WithLabelValues(gw, "gateway_error").Inc()
		s.log.Error("create payment order failed", zap.Uint64("booking_id", b.ID), zap.Error(err))
		return nil, err
	}
	if err := s.bookings.AttachOrder(ctx, b.ID, order.ID); err != nil {
		metrics.PaymentOrders.WithLabelValues(gw, "error").Inc()
		return nil, fmt.Errorf("attach order: %w", err)
	}
	metrics.PaymentOrders.WithLabelValues(gw, "created").Inc()
	s.log.Info("payment order created", zap.Uint64("booking_id", b.ID), zap.String("order_id", order.ID), zap.String("gateway", gw))
	return s.paymentOrder(b, order), nil
}

func (s *BookingService) resumeOrder(ctx context.Context, b *model.Booking) (*PaymentOrder, error) {
	gw := s.gateway.Name()
	order := &payment.Order{ID: *b.PaymentReference}
	if r, ok := s.gateway.(payment.OrderResumer); ok {
		o, err := r.ResumeOrder(ctx, order.ID)
		if err != nil {
			metrics.PaymentOrders.WithLabelValues(gw, "gateway_error").Inc()
			s.log.Error("resume payment order failed", zap.Uint64("booking_id", b.ID), zap.String("order_id", order.ID), zap.Error(err))
			return nil, err
		}
		order = o
	}
	metrics.PaymentOrders.WithLabelValues(gw, "reused").Inc()
	s.log.Info("payment order reused", zap.Uint64("booking_id", b.ID), zap.String("order_id", order.ID), zap.String("gateway", gw))
	return s.paymentOrder(b, order), nil
}

func (s *BookingService) paymentOrder(b *model.Booking, order *payment.Order) *PaymentOrder {
	return &PaymentOrder{
		OrderID:      order.ID,
		BookingID:    b.ID,
		Amount:       b.TotalPrice,
		Currency:     s.cfg.Currency,
		Gateway:      s.gateway.Name(),
		KeyID:        s.gateway.KeyID(),
		ClientSecret: order.ClientSecret,
	}
}

// ConfirmPayment verifies the gateway callback and moves the booking to
// PAID.  Nothing is read or written before the signature verifies.
// Repeating a successful confirmation returns the PAID booking again.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingID uint64, orderID, paymentID, signature string) (*model.Booking, error) {
	b, repeat, err := s.confirm(ctx, bookingID, orderID, paymentID, signature)
	result := "paid"
	switch {
	case err == nil && repeat:
		result = "already_paid"
	case err == nil:
	case errors.Is(err, payment.ErrSignatureMismatch):
		result = "bad_signature"
	case errors.Is(err, repository.ErrSoldOut):
		result = "sold_out"
	default:
		result = "error"
	}
	metrics.PaymentConfirmations.WithLabelValues(result).Inc()
	return b, err
}

// confirm reports repeat when the booking was already PAID beforehand.
func (s *BookingService) confirm(ctx context.Context, bookingID uint64, orderID, paymentID, signature string) (*model.Booking, bool, error) {
	if err := s.gateway.VerifyPayment(ctx, orderID, paymentID, signature); err != nil {
		s.log.Warn("payment verification failed", zap.Uint64("booking_id", bookingID), zap.String("order_id", orderID), zap.Error(err))
		return nil, false, err
	}
	before, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, false, err
	}
	if before.PaymentReference == nil || *before.PaymentReference != orderID {
		return nil, false, ErrOrderMismatch
	}
	b, err := s.bookings.ConfirmTx(ctx, bookingID, paymentID, s.clock())
	if err != nil {
		if errors.Is(err, repository.ErrSoldOut) {
			s.log.Warn("payment received but room sold out, booking failed",
				zap.Uint64("booking_id", bookingID), zap.String("payment_id", paymentID))
			return b, false, err
		}
		return nil, false, err
	}
	if before.PaymentStatus == model.PaymentPaid {
		return b, true, nil
	}
	s.log.Info("booking paid", zap.Uint64("booking_id", b.ID), zap.String("order_id", orderID), zap.String("payment_id", paymentID))
	s.publishPaid(ctx, b, orderID, paymentID)
	return b, false, nil
}

func (s *BookingService) publishPaid(ctx context.Context, b *model.Booking, orderID, paymentID string) {
	if s.publisher == nil {
		return
	}
	ev := queue.BookingPaidEvent{
		BookingID:     b.ID,
		RoomID:        b.RoomID,
		GuestName:     b.GuestName,
		GuestEmail:    b.GuestEmail,
		ArrivalDate:   b.ArrivalDate.Format(model.DateLayout),
		DepartureDate: b.DepartureDate.Format(model.DateLayout),
		Guests:        b.NumberOfGuests,
		Amount:        b.TotalPrice,
		Currency:      s.cfg.Currency,
		Gateway:       s.gateway.Name(),
		OrderID:       orderID,
		PaymentID:     paymentID,
		PaidAt:        s.clock().Format(time.RFC3339),
	}
	if err := s.publisher.PublishBookingPaid(ctx, ev); err != nil {
		s.log.Warn("publish booking.paid failed", zap.Uint64("booking_id", b.ID), zap.Error(err))
	}
}

// ConfirmPaymentByOrder resolves the booking from the gateway order id and
// confirms it.  The signature is still verified before any state change.
func (s *BookingService) ConfirmPaymentByOrder(ctx context.Context, orderID, paymentID, signature string) (*model.Booking, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, invalid("orderId", "is required")
	}
	b, err := s.bookings.GetByPaymentReference(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.ConfirmPayment(ctx, b.ID, orderID, paymentID, signature)
}

// CancelBooking cancels a PENDING booking and frees its unit.
func (s *BookingService) CancelBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	if err := s.bookings.Cancel(ctx, id); err != nil {
		return nil, err
	}
	s.log.Info("booking cancelled", zap.Uint64("booking_id", id))
	return s.bookings.GetByID(ctx, id)
}

// ExpireHold cancels the booking if it is still PENDING with a lapsed hold
// and no gateway order.  It reports whether the booking was cancelled.
func (s *BookingService) ExpireHold(ctx context.Context, id uint64) (bool, error) {
	ok, err := s.bookings.ExpireHold(ctx, id, s.clock())
	if err != nil {
		return false, fmt.Errorf("expire hold %d: %w", id, err)
	}
	if ok {
		metrics.HoldsExpired.Inc()
		s.log.Info("hold expired, booking cancelled", zap.Uint64("booking_id", id))
	}
	return ok, nil
}

// SweepHolds cancels every lapsed hold in one pass and returns how many
// bookings were cancelled.
func (s *BookingService) SweepHolds(ctx context.Context) (int64, error) {
	n, err := s.bookings.ExpireHolds(ctx, 0, s.clock())
	if err != nil {
		return 0, fmt.Errorf("sweep holds: %w", err)
	}
	if n > 0 {
		metrics.HoldsExpired.Add(float64(n))
		s.log.Info("lapsed holds cancelled", zap.Int64("count", n))
	}
	return n, nil
}

// GetBooking returns one booking.
func (s *BookingService) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// ListBookings lists bookings, optionally filtered by status.
func (s *BookingService) ListBookings(ctx context.Context, status string) ([]model.Booking, error) {
	var st model.PaymentStatus
	if status != "" {
		parsed, err := model.ParsePaymentStatus(strings.ToUpper(status))
		if err != nil {
			return nil, invalid("status", "must be one of PENDING, PAID, FAILED, CANCELLED")
		}
		st = parsed
	}
	return s.bookings.ListByStatus(ctx, st)
}

// ListBookingsInRange returns bookings whose stay overlaps [from, to).
func (s *BookingService) ListBookingsInRange(ctx context.Context, from, to time.Time) ([]model.Booking, error) {
	stay, err := validateStay(from, to, 0)
	if err != nil {
		return nil, err
	}
	return s.bookings.ListByRange(ctx, stay.Arrival, stay.Departure)
}
