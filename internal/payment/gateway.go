// Package payment adapts external payment gateways to a single Gateway
// interface used by the booking service.  An order is created for the
// full booking amount and later verified when the gateway redirects the
// guest back with a payment id and signature.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrSignatureMismatch is returned when a callback's signature does not
// match the order and payment ids it claims to confirm.
var ErrSignatureMismatch = errors.New("payment signature verification failed")

// GatewayError wraps any failure talking to the gateway itself.
type GatewayError struct {
	Gateway string
	Op      string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Gateway, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// OrderRequest describes the order to open for a booking.
type OrderRequest struct {
	BookingID uint64
	Amount    float64 // major units
	Currency  string
}

// Order is the gateway's view of an opened order.
type Order struct {
	ID           string
	Amount       float64 // major units
	Currency     string
	ClientSecret string // only set by gateways that confirm client side
}

// Gateway is implemented by every supported payment provider.
type Gateway interface {
	Name() string
	// KeyID is the public key the browser checkout needs.
	KeyID() string
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	// VerifyPayment returns nil only when paymentID is a genuine
	// successful payment for orderID.
	VerifyPayment(ctx context.Context, orderID, paymentID, signature string) error
}

// OrderResumer is implemented by gateways whose checkout needs more than
// the order id to resume an order opened earlier.
type OrderResumer interface {
	ResumeOrder(ctx context.Context, orderID string) (*Order, error)
}

// ToMinorUnits converts a major-unit amount (rupees) to minor units (paise).
func ToMinorUnits(amount float64) int64 { return int64(math.Round(amount * 100)) }

// FromMinorUnits converts minor units back to major units.
func FromMinorUnits(minor int64) float64 { return float64(minor) / 100 }
