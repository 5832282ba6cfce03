// Package metrics holds the Prometheus counters exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AvailabilityChecks counts availability queries by outcome:
	// available, full or invalid.
	AvailabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resort_availability_checks_total",
			Help: "Availability checks by outcome.",
		},
		[]string{"status"},
	)
	// Reservations counts reservation attempts by result.
	Reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resort_reservations_total",
			Help: "Reservation attempts by result.",
		},
		[]string{"result"},
	)
	// PaymentOrders counts gateway order creation by gateway and result.
	PaymentOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resort_payment_orders_total",
			Help: "Payment orders created by gateway and result.",
		},
		[]string{"gateway", "result"},
	)
	// PaymentConfirmations counts confirmation callbacks by result.
	PaymentConfirmations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resort_payment_confirmations_total",
			Help: "Payment confirmations by result.",
		},
		[]string{"result"},
	)
	// HoldsExpired counts reservations cancelled because their hold lapsed.
	HoldsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "resort_holds_expired_total",
		Help: "Pending bookings cancelled after their hold lapsed.",
	})
)

var registerOnce sync.Once

// Register adds every collector to the default registry.  Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(AvailabilityChecks, Reservations, PaymentOrders, PaymentConfirmations, HoldsExpired)
	})
}
