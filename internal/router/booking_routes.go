package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resort-booking/internal/handler"
)

// RegisterBooking registers the guest booking and payment endpoints on
// the /api group.  Reading or cancelling a booking needs the token handed
// out by reserve; payment is authorised by the gateway signature.
func RegisterBooking(api *echo.Group, h *handler.BookingHandler) {
	b := api.Group("/bookings")
	b.POST("/check-availability", h.CheckAvailability)
	b.POST("/reserve", h.Reserve)
	b.GET("/:id", h.Get)
	b.POST("/:id/cancel", h.Cancel)

	p := api.Group("/payment")
	p.POST("/create-order", h.CreateOrder)
	p.GET("/success", h.PaymentSuccess)
}

// RegisterCatalog exposes the room catalog.  cache wraps the listing so
// repeated reads are served from Redis.
func RegisterCatalog(api *echo.Group, h *handler.RoomHandler, cache echo.MiddlewareFunc) {
	api.GET("/rooms", h.List, cache)
}
