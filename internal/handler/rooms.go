package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/resort-booking/internal/model"
	"github.com/iliyamo/resort-booking/internal/service"
)

// Catalog reads and edits room types.
type Catalog interface {
	ListRooms(ctx context.Context) ([]model.Room, error)
	CreateRoom(ctx context.Context, in service.RoomInput) (*model.Room, error)
	UpdateRoom(ctx context.Context, id uint64, in service.RoomInput) (*model.Room, error)
}

// RoomHandler serves the public catalog.
type RoomHandler struct {
	Catalog Catalog
	Log     *zap.Logger
}

func NewRoomHandler(catalog Catalog, log *zap.Logger) *RoomHandler {
	if catalog == nil {
		panic("nil catalog passed to NewRoomHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RoomHandler{Catalog: catalog, Log: log}
}

type roomResp struct {
	ID            uint64  `json:"id"`
	Name          string  `json:"name"`
	Capacity      int     `json:"capacity"`
	TotalQuantity int     `json:"totalQuantity"`
	PricePerNight float64 `json:"pricePerNight"`
}

func toRoomResp(r *model.Room) roomResp {
	return roomResp{ID: r.ID, Name: r.Name, Capacity: r.Capacity, TotalQuantity: r.TotalQuantity, PricePerNight: r.PricePerNight}
}

// List handles GET /api/rooms.
func (h *RoomHandler) List(c echo.Context) error {
	rooms, err := h.Catalog.ListRooms(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out := make([]roomResp, 0, len(rooms))
	for i := range rooms {
		out = append(out, toRoomResp(&rooms[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "count": len(out)})
}
