package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/resort-booking/internal/model"
)

const roomColumns = `id, name, capacity, total_quantity, price_per_night, created_at, updated_at`

// RoomRepo manages persistence for room types.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// DB exposes the underlying sql.DB so callers can ping it or begin
// transactions spanning repositories.
func (r *RoomRepo) DB() *sql.DB { return r.db }

func scanRoom(s rowScanner) (*model.Room, error) {
	var rm model.Room
	if err := s.Scan(&rm.ID, &rm.Name, &rm.Capacity, &rm.TotalQuantity, &rm.PricePerNight, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		return nil, err
	}
	return &rm, nil
}

// List returns every room ordered by id, which is the catalog order
// used for availability results. An empty catalog yields an empty slice.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rooms := []model.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *rm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rooms, nil
}

// GetByID retrieves a room by id. It returns ErrRoomNotFound if there is
// no matching row.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	rm, err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return rm, nil
}

// Create inserts a room and reloads it so the timestamps filled in by
// the database are populated on the returned struct.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	const q = `INSERT INTO rooms (name, capacity, total_quantity, price_per_night) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rm.Name, rm.Capacity, rm.TotalQuantity, rm.PricePerNight)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	saved, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*rm = *saved
	return nil
}

// Update overwrites the mutable fields of a room. Lowering
// total_quantity below the number of units already sold is allowed;
// existing bookings are never touched and new reservations simply stop
// succeeding until inventory frees up.
func (r *RoomRepo) Update(ctx context.Context, rm *model.Room) error {
	const q = `UPDATE rooms SET name = ?, capacity = ?, total_quantity = ?, price_per_night = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, rm.Name, rm.Capacity, rm.TotalQuantity, rm.PricePerNight, rm.ID); err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	// MySQL reports zero affected rows when nothing changed, so the
	// reload is what tells a missing room apart from an unchanged one.
	saved, err := r.GetByID(ctx, rm.ID)
	if err != nil {
		return err
	}
	*rm = *saved
	return nil
}
