package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/resort-booking/internal/model"
)

// RoomInput carries the admin-editable fields of a room type.
type RoomInput struct {
	Name          string
	Capacity      int
	TotalQuantity int
	PricePerNight float64
}

func (in RoomInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "is required")
	}
	if in.Capacity < 1 {
		return invalid("capacity", "must be at least 1")
	}
	if in.TotalQuantity < 0 {
		return invalid("totalQuantity", "must not be negative")
	}
	if in.PricePerNight <= 0 {
		return invalid("pricePerNight", "must be positive")
	}
	return nil
}

// CatalogService maintains room types.
type CatalogService struct {
	rooms RoomStore
	options
}

// NewCatalogService wires the service.
func NewCatalogService(rooms RoomStore, opts ...Option) *CatalogService {
	return &CatalogService{rooms: rooms, options: buildOptions(opts)}
}

// ListRooms returns the catalog in id order.
func (s *CatalogService) ListRooms(ctx context.Context) ([]model.Room, error) {
	return s.rooms.List(ctx)
}

// CreateRoom adds a room type.
func (s *CatalogService) CreateRoom(ctx context.Context, in RoomInput) (*model.Room, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	r := &model.Room{
		Name:          strings.TrimSpace(in.Name),
		Capacity:      in.Capacity,
		TotalQuantity: in.TotalQuantity,
		PricePerNight: in.PricePerNight,
	}
	if err := s.rooms.Create(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info("room created", zap.Uint64("room_id", r.ID), zap.String("name", r.Name))
	return r, nil
}

// UpdateRoom replaces the editable fields of room id.
func (s *CatalogService) UpdateRoom(ctx context.Context, id uint64, in RoomInput) (*model.Room, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	r := &model.Room{
		ID:            id,
		Name:          strings.TrimSpace(in.Name),
		Capacity:      in.Capacity,
		TotalQuantity: in.TotalQuantity,
		PricePerNight: in.PricePerNight,
	}
	if err := s.rooms.Update(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info("room updated", zap.Uint64("room_id", r.ID))
	return r, nil
}
