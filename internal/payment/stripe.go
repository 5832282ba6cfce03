package payment

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Stripe maps orders onto PaymentIntents.  The order id is the intent id
// and the callback signature is the intent's client secret, which only
// the browser that started checkout holds.  Verification re-fetches the
// intent rather than trusting the redirect parameters.
type Stripe struct {
	publishableKey string
	api            *client.API
}

// NewStripe builds a gateway for the given secret key.  backends may be
// nil to use the default Stripe endpoints.
func NewStripe(secretKey, publishableKey string, backends *stripe.Backends) *Stripe {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &Stripe{publishableKey: publishableKey, api: api}
}

func (s *Stripe) Name() string  { return "stripe" }
func (s *Stripe) KeyID() string { return s.publishableKey }

// CreateOrder creates a PaymentIntent tagged with the booking id.
func (s *Stripe) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ToMinorUnits(req.Amount)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
	}
	params.Context = ctx
	params.AddMetadata("bookingId", strconv.FormatUint(req.BookingID, 10))
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, &GatewayError{Gateway: s.Name(), Op: "create payment intent", Err: err}
	}
	return &Order{
		ID:           pi.ID,
		Amount:       FromMinorUnits(pi.Amount),
		Currency:     strings.ToUpper(string(pi.Currency)),
		ClientSecret: pi.ClientSecret,
	}, nil
}

// ResumeOrder re-fetches an intent so its client secret can be handed
// to the browser again.
func (s *Stripe) ResumeOrder(ctx context.Context, orderID string) (*Order, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(orderID, params)
	if err != nil {
		return nil, &GatewayError{Gateway: s.Name(), Op: "fetch payment intent", Err: err}
	}
	return &Order{
		ID:           pi.ID,
		Amount:       FromMinorUnits(pi.Amount),
		Currency:     strings.ToUpper(string(pi.Currency)),
		ClientSecret: pi.ClientSecret,
	}, nil
}

// VerifyPayment accepts the intent id or its latest charge id as the
// payment id.
func (s *Stripe) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) error {
	if orderID == "" || signature == "" {
		return fmt.Errorf("%w: missing order id or signature", ErrSignatureMismatch)
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(orderID, params)
	if err != nil {
		return &GatewayError{Gateway: s.Name(), Op: "fetch payment intent", Err: err}
	}
	if subtle.ConstantTimeCompare([]byte(pi.ClientSecret), []byte(signature)) != 1 {
		return ErrSignatureMismatch
	}
	if paymentID != "" && paymentID != pi.ID && (pi.LatestCharge == nil || pi.LatestCharge.ID != paymentID) {
		return fmt.Errorf("%w: payment id does not belong to order", ErrSignatureMismatch)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("%w: payment intent status %s", ErrSignatureMismatch, pi.Status)
	}
	return nil
}
