package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// orderAPI is the subset of the razorpay Order resource used here.
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Razorpay opens orders through the Razorpay Orders API and verifies the
// HMAC-SHA256 signature Razorpay checkout returns on success.
type Razorpay struct {
	keyID  string
	secret string
	orders orderAPI
}

// NewRazorpay builds a gateway for the given key pair.
func NewRazorpay(keyID, secret string) *Razorpay {
	client := razorpay.NewClient(keyID, secret)
	return &Razorpay{keyID: keyID, secret: secret, orders: client.Order}
}

func (r *Razorpay) Name() string  { return "razorpay" }
func (r *Razorpay) KeyID() string { return r.keyID }

// CreateOrder opens an order whose receipt is the booking id.
func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	receipt := strconv.FormatUint(req.BookingID, 10)
	data := map[string]interface{}{
		"amount":   ToMinorUnits(req.Amount),
		"currency": req.Currency,
		"receipt":  receipt,
		"notes":    map[string]interface{}{"bookingId": receipt},
	}
	resp, err := r.orders.Create(data, nil)
	if err != nil {
		return nil, &GatewayError{Gateway: r.Name(), Op: "create order", Err: err}
	}
	id, _ := resp["id"].(string)
	if id == "" {
		return nil, &GatewayError{Gateway: r.Name(), Op: "create order", Err: errors.New("response has no order id")}
	}
	amount := req.Amount
	if v, ok := resp["amount"].(float64); ok {
		amount = FromMinorUnits(int64(v))
	}
	currency := req.Currency
	if v, ok := resp["currency"].(string); ok && v != "" {
		currency = v
	}
	return &Order{ID: id, Amount: amount, Currency: currency}, nil
}

// VerifyPayment checks signature == HMAC_SHA256(orderID + "|" + paymentID, secret).
func (r *Razorpay) VerifyPayment(_ context.Context, orderID, paymentID, signature string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return fmt.Errorf("%w: missing order id, payment id or signature", ErrSignatureMismatch)
	}
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	if !utils.VerifyPaymentSignature(params, signature, r.secret) {
		return ErrSignatureMismatch
	}
	return nil
}
