// Package service holds the availability, booking lifecycle and catalog
// logic.  It depends only on the small interfaces below, which the
// repository, queue and tasks packages satisfy.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/resort-booking/internal/model"
	"github.com/iliyamo/resort-booking/internal/queue"
)

// RoomCatalog reads room types.
type RoomCatalog interface {
	List(ctx context.Context) ([]model.Room, error)
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
}

// RoomStore is a RoomCatalog that can also be written by admins.
type RoomStore interface {
	RoomCatalog
	Create(ctx context.Context, r *model.Room) error
	Update(ctx context.Context, r *model.Room) error
}

// OccupancyReader counts occupied units per room for a stay.
type OccupancyReader interface {
	OccupiedCounts(ctx context.Context, stay model.Stay, now time.Time) (map[uint64]int, error)
}

// BookingLedger is the persistent store of bookings.
type BookingLedger interface {
	OccupancyReader
	ReserveTx(ctx context.Context, b *model.Booking, now time.Time) error
	ConfirmTx(ctx context.Context, id uint64, paymentID string, now time.Time) (*model.Booking, error)
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	GetByPaymentReference(ctx context.Context, orderID string) (*model.Booking, error)
	ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Booking, error)
	ListByRange(ctx context.Context, from, to time.Time) ([]model.Booking, error)
	AttachOrder(ctx context.Context, id uint64, orderID string) error
	Cancel(ctx context.Context, id uint64) error
	ExpireHold(ctx context.Context, id uint64, now time.Time) (bool, error)
	ExpireHolds(ctx context.Context, roomID uint64, now time.Time) (int64, error)
}

// EventPublisher publishes booking events.
type EventPublisher interface {
	PublishBookingPaid(ctx context.Context, ev queue.BookingPaidEvent) error
}

// HoldScheduler arranges for a hold to be expired at a given time.
type HoldScheduler interface {
	ScheduleHoldExpiry(ctx context.Context, bookingID uint64, at time.Time) error
}

type options struct {
	now       func() time.Time
	log       *zap.Logger
	publisher EventPublisher
	scheduler HoldScheduler
}

// Option configures a service.
type Option func(*options)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithPublisher enables booking.paid events.
func WithPublisher(p EventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithScheduler enables hold-expiry tasks.
func WithScheduler(s HoldScheduler) Option {
	return func(o *options) { o.scheduler = s }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, log: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func (o options) clock() time.Time { return o.now().UTC() }
