package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/resort-booking/internal/metrics"
	"github.com/iliyamo/resort-booking/internal/model"
)

const (
	StatusFull      = "FULL"
	StatusAvailable = "AVAILABLE"
)

// AvailabilityQuery is a guest's search.
type AvailabilityQuery struct {
	Arrival   time.Time
	Departure time.Time
	Guests    int
}

// RoomAvailability is one bookable room type in a result.
type RoomAvailability struct {
	RoomID         uint64
	Name           string
	Capacity       int
	AvailableCount int
	PricePerNight  float64
}

// AvailabilityResult lists bookable rooms in catalog order.  Status is
// FULL exactly when Rooms is empty.
type AvailabilityResult struct {
	Status string
	Rooms  []RoomAvailability
}

// AvailabilityService answers availability queries against the catalog
// and the booking ledger.  It never writes.
type AvailabilityService struct {
	rooms         RoomCatalog
	occupancy     OccupancyReader
	maxStayNights int
	options
}

// NewAvailabilityService wires the service.  maxStayNights <= 0 disables
// the stay length limit.
func NewAvailabilityService(rooms RoomCatalog, occ OccupancyReader, maxStayNights int, opts ...Option) *AvailabilityService {
	return &AvailabilityService{rooms: rooms, occupancy: occ, maxStayNights: maxStayNights, options: buildOptions(opts)}
}

func validateStay(arrival, departure time.Time, maxNights int) (model.Stay, error) {
	if arrival.IsZero() {
		return model.Stay{}, invalid("arrivalDate", "is required")
	}
	if departure.IsZero() {
		return model.Stay{}, invalid("departureDate", "is required")
	}
	stay := model.NewStay(arrival, departure)
	if !stay.Valid() {
		return model.Stay{}, invalid("departureDate", "must be after arrivalDate")
	}
	if maxNights > 0 && stay.Nights() > maxNights {
		return model.Stay{}, invalid("departureDate", "stay may not exceed %d nights", maxNights)
	}
	return stay, nil
}

// Check returns every room type that fits the party and still has a free
// unit for the whole stay.
func (s *AvailabilityService) Check(ctx context.Context, q AvailabilityQuery) (*AvailabilityResult, error) {
	stay, err := validateStay(q.Arrival, q.Departure, s.maxStayNights)
	if err != nil {
		metrics.AvailabilityChecks.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if q.Guests < 1 {
		metrics.AvailabilityChecks.WithLabelValues("invalid").Inc()
		return nil, invalid("numberOfGuests", "must be at least 1")
	}
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	occupied, err := s.occupancy.OccupiedCounts(ctx, stay, s.clock())
	if err != nil {
		return nil, fmt.Errorf("occupied counts: %w", err)
	}
	res := &AvailabilityResult{Status: StatusFull, Rooms: []RoomAvailability{}}
	for _, r := range rooms {
		if !r.Fits(q.Guests) {
			continue
		}
		free := r.TotalQuantity - occupied[r.ID]
		if free <= 0 {
			continue
		}
		res.Rooms = append(res.Rooms, RoomAvailability{
			RoomID:         r.ID,
			Name:           r.Name,
			Capacity:       r.Capacity,
			AvailableCount: free,
			PricePerNight:  r.PricePerNight,
		})
	}
	if len(res.Rooms) > 0 {
		res.Status = StatusAvailable
	}
	metrics.AvailabilityChecks.WithLabelValues(strings.ToLower(res.Status)).Inc()
	s.log.Debug("availability checked",
		zap.String("stay", stay.String()),
		zap.Int("guests", q.Guests),
		zap.String("status", res.Status),
		zap.Int("rooms", len(res.Rooms)))
	return res, nil
}
