package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resort-booking/internal/model"
	"github.com/iliyamo/resort-booking/internal/repository"
	"github.com/iliyamo/resort-booking/internal/service"
)

type createOrderReq struct {
	BookingID uint64  `json:"bookingId" validate:"required"`
	Amount    float64 `json:"amount" validate:"gte=0"`
}

// CreateOrder handles POST /api/payment/create-order.
func (h *BookingHandler) CreateOrder(c echo.Context) error {
	var req createOrderReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	o, err := h.Bookings.CreatePaymentOrder(c.Request().Context(), req.BookingID, req.Amount)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	resp := echo.Map{
		"orderId":      o.OrderID,
		"bookingId":    o.BookingID,
		"amount":       o.Amount,
		"currency":     o.Currency,
		"gateway":      o.Gateway,
		"gatewayKeyId": o.KeyID,
	}
	if o.ClientSecret != "" {
		resp["clientSecret"] = o.ClientSecret
	}
	return c.JSON(http.StatusOK, resp)
}

// firstOf returns the first non-empty query parameter among names.
func firstOf(c echo.Context, names ...string) string {
	for _, n := range names {
		if v := c.QueryParam(n); v != "" {
			return v
		}
	}
	return ""
}

// PaymentSuccess handles GET /api/payment/success, the gateway redirect
// after checkout.  Razorpay's parameter names are accepted alongside ours.
func (h *BookingHandler) PaymentSuccess(c echo.Context) error {
	orderID := firstOf(c, "orderId", "razorpay_order_id", "payment_intent")
	paymentID := firstOf(c, "paymentId", "razorpay_payment_id", "payment_intent")
	signature := firstOf(c, "signature", "razorpay_signature", "payment_intent_client_secret")
	if orderID == "" || paymentID == "" || signature == "" {
		return writeError(c, h.Log, &service.ValidationError{Msg: "orderId, paymentId and signature are required"})
	}

	ctx := c.Request().Context()
	var err error
	var bookingID uint64
	if raw := c.QueryParam("bookingId"); raw != "" {
		bookingID, err = strconv.ParseUint(raw, 10, 64)
		if err != nil || bookingID == 0 {
			return writeError(c, h.Log, &service.ValidationError{Field: "bookingId", Msg: "must be a positive integer"})
		}
	}

	var b *model.Booking
	if bookingID != 0 {
		b, err = h.Bookings.ConfirmPayment(ctx, bookingID, orderID, paymentID, signature)
	} else {
		b, err = h.Bookings.ConfirmPaymentByOrder(ctx, orderID, paymentID, signature)
	}
	if b != nil {
		bookingID = b.ID
	}
	if err != nil {
		if errors.Is(err, repository.ErrSoldOut) {
			return c.JSON(http.StatusConflict, echo.Map{
				"status":    "FAILED",
				"bookingId": bookingID,
				"error":     "payment received but the room is no longer available",
			})
		}
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":    "PAID",
		"bookingId": bookingID,
		"orderId":   orderID,
		"paymentId": paymentID,
	})
}
