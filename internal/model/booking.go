package model

import (
    "fmt"
    "time"
)

// PaymentStatus is the lifecycle state of a booking.
type PaymentStatus string

const (
    PaymentPending   PaymentStatus = "PENDING"
    PaymentPaid      PaymentStatus = "PAID"
    PaymentFailed    PaymentStatus = "FAILED"
    PaymentCancelled PaymentStatus = "CANCELLED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
    PaymentPending:   {PaymentPaid, PaymentFailed, PaymentCancelled},
    PaymentPaid:      {},
    PaymentFailed:    {},
    PaymentCancelled: {},
}

// ParsePaymentStatus converts a string into a PaymentStatus.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
    st := PaymentStatus(s)
    if _, ok := paymentTransitions[st]; !ok {
        return "", fmt.Errorf("invalid payment status: %q", s)
    }
    return st, nil
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
    for _, t := range paymentTransitions[s] {
        if t == target {
            return true
        }
    }
    return false
}

// IsTerminal reports whether no further transitions are possible.
func (s PaymentStatus) IsTerminal() bool { return len(paymentTransitions[s]) == 0 }

// Booking records one guest's reservation of a single unit of a room
// type.  It is created PENDING, optionally holding inventory until
// HoldExpiresAt, and moves to PAID once the gateway payment has been
// verified.  Bookings are never deleted.
//
// Fields:
//  ID               – primary key identifier.
//  RoomID           – room type being booked (reference only).
//  ArrivalDate      – first night, UTC midnight.
//  DepartureDate    – checkout day, UTC midnight (exclusive).
//  NumberOfGuests   – party size.
//  TotalPrice       – price of the whole stay in major units.
//  GuestName        – name given at reservation time.
//  GuestEmail       – contact email.
//  PaymentReference – gateway order id (nil until an order is created).
//  PaymentID        – gateway payment id (nil until confirmed).
//  PaymentStatus    – PENDING, PAID, FAILED or CANCELLED.
//  HoldExpiresAt    – end of the inventory hold (nil when no hold).
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Booking struct {
    ID               uint64        // bookings.id
    RoomID           uint64        // bookings.room_id
    ArrivalDate      time.Time     // bookings.arrival_date
    DepartureDate    time.Time     // bookings.departure_date
    NumberOfGuests   int           // bookings.number_of_guests
    TotalPrice       float64       // bookings.total_price
    GuestName        string        // bookings.guest_name
    GuestEmail       string        // bookings.guest_email
    PaymentReference *string       // bookings.payment_reference (nullable)
    PaymentID        *string       // bookings.payment_id (nullable)
    PaymentStatus    PaymentStatus // bookings.payment_status
    HoldExpiresAt    *time.Time    // bookings.hold_expires_at (nullable)
    CreatedAt        time.Time     // bookings.created_at
    UpdatedAt        time.Time     // bookings.updated_at
}

// Stay returns the booked date range.
func (b Booking) Stay() Stay { return NewStay(b.ArrivalDate, b.DepartureDate) }

// HoldActive reports whether the booking is PENDING with an unexpired hold.
func (b Booking) HoldActive(now time.Time) bool {
    return b.PaymentStatus == PaymentPending && b.HoldExpiresAt != nil && b.HoldExpiresAt.After(now)
}

// Occupies reports whether the booking consumes a unit of its room at
// time now: paid bookings always do, pending ones only while held.
func (b Booking) Occupies(now time.Time) bool {
    return b.PaymentStatus == PaymentPaid || b.HoldActive(now)
}
