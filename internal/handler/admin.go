package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/resort-booking/internal/export"
	"github.com/iliyamo/resort-booking/internal/model"
	"github.com/iliyamo/resort-booking/internal/service"
	"github.com/iliyamo/resort-booking/internal/utils"
)

// BookingAdmin is the staff view of the booking ledger.
type BookingAdmin interface {
	ListBookings(ctx context.Context, status string) ([]model.Booking, error)
	ListBookingsInRange(ctx context.Context, from, to time.Time) ([]model.Booking, error)
}

// AdminCredentials identify the single staff account and how its tokens
// are signed.
type AdminCredentials struct {
	Email        string
	PasswordHash string
	JWTSecret    string
	TokenTTL     time.Duration
}

// AdminHandler serves /api/admin.
type AdminHandler struct {
	Creds    AdminCredentials
	Catalog  Catalog
	Bookings BookingAdmin
	Log      *zap.Logger
}

func NewAdminHandler(creds AdminCredentials, catalog Catalog, bookings BookingAdmin, log *zap.Logger) *AdminHandler {
	if catalog == nil || bookings == nil {
		panic("nil service passed to NewAdminHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if creds.TokenTTL <= 0 {
		creds.TokenTTL = 15 * time.Minute
	}
	return &AdminHandler{Creds: creds, Catalog: catalog, Bookings: bookings, Log: log}
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/admin/login.
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	emailOK := h.Creds.Email != "" && strings.EqualFold(strings.TrimSpace(req.Email), h.Creds.Email)
	// bcrypt runs even when the email is wrong
	passOK := utils.VerifyPassword(h.Creds.PasswordHash, req.Password)
	if !emailOK || !passOK {
		h.Log.Warn("admin login rejected", zap.String("email", req.Email), zap.String("ip", c.RealIP()))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	tok, err := utils.NewAccessToken(h.Creds.JWTSecret, h.Creds.Email, utils.RoleAdmin, h.Creds.TokenTTL)
	if err != nil {
		return writeError(c, h.Log, fmt.Errorf("issue token: %w", err))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": echo.Map{"token": tok.Token, "expires": tok.Exp},
		"role":   utils.RoleAdmin,
	})
}

type roomReq struct {
	Name          string  `json:"name" validate:"required,max=100"`
	Capacity      int     `json:"capacity" validate:"required,min=1"`
	TotalQuantity int     `json:"totalQuantity" validate:"gte=0"`
	PricePerNight float64 `json:"pricePerNight" validate:"required,gt=0"`
}

func (r roomReq) input() service.RoomInput {
	return service.RoomInput{Name: r.Name, Capacity: r.Capacity, TotalQuantity: r.TotalQuantity, PricePerNight: r.PricePerNight}
}

// CreateRoom handles POST /api/admin/rooms.
func (h *AdminHandler) CreateRoom(c echo.Context) error {
	var req roomReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	room, err := h.Catalog.CreateRoom(c.Request().Context(), req.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toRoomResp(room))
}

// UpdateRoom handles PUT /api/admin/rooms/:id.
func (h *AdminHandler) UpdateRoom(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req roomReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	room, err := h.Catalog.UpdateRoom(c.Request().Context(), id, req.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toRoomResp(room))
}

// ListBookings handles GET /api/admin/bookings?status=.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	bookings, err := h.Bookings.ListBookings(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": viewBookings(bookings), "count": len(bookings)})
}

// ExportBookings handles GET /api/admin/bookings/export?from&to and
// streams an XLSX workbook of every booking overlapping [from, to).
func (h *AdminHandler) ExportBookings(c echo.Context) error {
	from, to, err := parseDates(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx := c.Request().Context()
	bookings, err := h.Bookings.ListBookingsInRange(ctx, from, to)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	rooms, err := h.Catalog.ListRooms(ctx)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	names := make(map[uint64]string, len(rooms))
	for _, r := range rooms {
		names[r.ID] = r.Name
	}
	f, err := export.Bookings(bookings, names, from, to)
	if err != nil {
		return writeError(c, h.Log, fmt.Errorf("build export: %w", err))
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return writeError(c, h.Log, fmt.Errorf("write export: %w", err))
	}
	filename := fmt.Sprintf("bookings_%s_%s.xlsx", from.Format(model.DateLayout), to.Format(model.DateLayout))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}
