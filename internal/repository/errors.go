// Package repository defines error types that are reused across the room
// and booking repositories. These sentinel values allow higher layers
// such as services and handlers to distinguish between different
// failure scenarios without inspecting SQL errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrRoomNotFound is returned when a room id does not exist.
var ErrRoomNotFound = errors.New("room not found")

// ErrBookingNotFound is returned when a booking id or payment
// reference does not match any row.
var ErrBookingNotFound = errors.New("booking not found")

// ErrSoldOut is returned when every unit of a room type is already
// occupied for an overlapping stay. Handlers should translate this
// into an HTTP 409 response.
var ErrSoldOut = errors.New("room sold out for the requested dates")

// ErrInvalidState is returned when a booking is not in a status that
// allows the requested transition (for example confirming a cancelled
// booking).
var ErrInvalidState = errors.New("booking is not in a valid state for this operation")

// ErrConflict is returned when an insert or update collides with a
// unique key, such as two rooms with the same name.
var ErrConflict = errors.New("conflict")

// isDuplicateKey reports whether err is a MySQL duplicate entry error.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
