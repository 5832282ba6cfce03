// Package queue defines message payloads exchanged over the message broker
// together with the RabbitMQ publisher and consumer for them.
package queue

// BookingPaidQueue is the durable queue booking.paid events are routed to.
const BookingPaidQueue = "booking.paid"

// BookingPaidEvent is published when a booking's payment has been verified
// and the booking moved to PAID.  It carries enough for downstream
// consumers to log or notify the guest without querying the database.
type BookingPaidEvent struct {
    BookingID     uint64  `json:"booking_id"`
    RoomID        uint64  `json:"room_id"`
    GuestName     string  `json:"guest_name"`
    GuestEmail    string  `json:"guest_email"`
    ArrivalDate   string  `json:"arrival_date"`
    DepartureDate string  `json:"departure_date"`
    Guests        int     `json:"guests"`
    Amount        float64 `json:"amount"`
    Currency      string  `json:"currency"`
    Gateway       string  `json:"gateway"`
    OrderID       string  `json:"order_id"`
    PaymentID     string  `json:"payment_id"`
    PaidAt        string  `json:"paid_at"`
}
