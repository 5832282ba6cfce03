package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stripe/stripe-go/v76"
)

type fakeOrders struct {
	got  map[string]interface{}
	resp map[string]interface{}
	err  error
}

func (f *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.got = data
	return f.resp, f.err
}

func sign(orderID, paymentID, secret string) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(m.Sum(nil))
}

func TestMinorUnits(t *testing.T) {
	cases := map[float64]int64{5000: 500000, 1999.99: 199999, 0.1 + 0.2: 30, 0: 0}
	for in, want := range cases {
		if got := ToMinorUnits(in); got != want {
			t.Errorf("ToMinorUnits(%v) = %d, want %d", in, got, want)
		}
	}
	if FromMinorUnits(199999) != 1999.99 {
		t.Fatal("FromMinorUnits mismatch")
	}
}

func TestRazorpayCreateOrder(t *testing.T) {
	fake := &fakeOrders{resp: map[string]interface{}{"id": "order_abc", "amount": float64(500000), "currency": "INR"}}
	rp := &Razorpay{keyID: "rzp_test", secret: "s3cret", orders: fake}

	o, err := rp.CreateOrder(context.Background(), OrderRequest{BookingID: 42, Amount: 5000, Currency: "INR"})
	if err != nil {
		t.Fatal(err)
	}
	if o.ID != "order_abc" || o.Amount != 5000 || o.Currency != "INR" {
		t.Fatalf("order = %+v", o)
	}
	if fake.got["amount"] != int64(500000) || fake.got["receipt"] != "42" {
		t.Fatalf("request = %v", fake.got)
	}
}

func TestRazorpayCreateOrderGatewayError(t *testing.T) {
	rp := &Razorpay{orders: &fakeOrders{err: errors.New("BAD_REQUEST_ERROR")}}
	_, err := rp.CreateOrder(context.Background(), OrderRequest{BookingID: 1, Amount: 10, Currency: "INR"})
	var gerr *GatewayError
	if !errors.As(err, &gerr) || gerr.Gateway != "razorpay" {
		t.Fatalf("err = %v, want GatewayError", err)
	}
}

func TestRazorpayVerifyPayment(t *testing.T) {
	rp := &Razorpay{secret: "s3cret"}
	good := sign("order_abc", "pay_xyz", "s3cret")
	cases := []struct {
		name               string
		order, pay, sig    string
		wantErr            bool
	}{
		{"valid", "order_abc", "pay_xyz", good, false},
		{"tampered payment", "order_abc", "pay_other", good, true},
		{"wrong secret", "order_abc", "pay_xyz", sign("order_abc", "pay_xyz", "other"), true},
		{"missing signature", "order_abc", "pay_xyz", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := rp.VerifyPayment(context.Background(), tc.order, tc.pay, tc.sig)
			if tc.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrSignatureMismatch) {
				t.Fatalf("err = %v, want ErrSignatureMismatch", err)
			}
		})
	}
}

func newStripeTestGateway(t *testing.T, h http.HandlerFunc) *Stripe {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	return NewStripe("sk_test_123", "pk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
}

const intentJSON = `{"id":"pi_123","object":"payment_intent","amount":500000,"currency":"inr","client_secret":"pi_123_secret_abc","status":"%s"}`

func TestStripeCreateOrder(t *testing.T) {
	gw := newStripeTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payment_intents" {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseForm()
		if r.Form.Get("amount") != "500000" || r.Form.Get("metadata[bookingId]") != "42" {
			http.Error(w, `{"error":{"message":"bad params"}}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(strings.Replace(intentJSON, "%s", "requires_payment_method", 1)))
	})
	o, err := gw.CreateOrder(context.Background(), OrderRequest{BookingID: 42, Amount: 5000, Currency: "INR"})
	if err != nil {
		t.Fatal(err)
	}
	if o.ID != "pi_123" || o.Amount != 5000 || o.ClientSecret != "pi_123_secret_abc" || o.Currency != "INR" {
		t.Fatalf("order = %+v", o)
	}
}

func TestStripeVerifyPayment(t *testing.T) {
	status := "succeeded"
	gw := newStripeTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(strings.Replace(intentJSON, "%s", status, 1)))
	})
	ctx := context.Background()
	if err := gw.VerifyPayment(ctx, "pi_123", "pi_123", "pi_123_secret_abc"); err != nil {
		t.Fatalf("valid payment rejected: %v", err)
	}
	if err := gw.VerifyPayment(ctx, "pi_123", "pi_123", "wrong"); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("err = %v, want ErrSignatureMismatch", err)
	}
	status = "requires_payment_method"
	if err := gw.VerifyPayment(ctx, "pi_123", "pi_123", "pi_123_secret_abc"); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("unpaid intent accepted: %v", err)
	}
}

func TestStripeResumeOrder(t *testing.T) {
	gw := newStripeTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/payment_intents/pi_123" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(strings.Replace(intentJSON, "%s", "requires_payment_method", 1)))
	})
	var _ OrderResumer = gw
	o, err := gw.ResumeOrder(context.Background(), "pi_123")
	if err != nil {
		t.Fatal(err)
	}
	if o.ID != "pi_123" || o.ClientSecret != "pi_123_secret_abc" || o.Amount != 5000 {
		t.Fatalf("order = %+v", o)
	}
}
