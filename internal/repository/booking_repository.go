package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/resort-booking/internal/model"
)

const bookingColumns = `id, room_id, arrival_date, departure_date, number_of_guests, total_price, guest_name, guest_email, payment_reference, payment_id, payment_status, hold_expires_at, created_at, updated_at`

// occupies is the SQL form of model.Booking.Occupies. It takes one
// argument: the current UTC time.
const occupies = `(payment_status = 'PAID' OR (payment_status = 'PENDING' AND hold_expires_at > ?))`

// lapsedHold matches PENDING rows whose hold has run out and that never
// reached the gateway. Rows carrying a payment_reference stay PENDING so a
// late gateway callback can still be honoured while inventory remains.
const lapsedHold = `payment_status = 'PENDING' AND payment_reference IS NULL AND hold_expires_at IS NOT NULL AND hold_expires_at <= ?`

type rowScanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// BookingRepo provides data access to the bookings table. Methods that
// must be race free against concurrent reservations (ReserveTx and
// ConfirmTx) run inside their own transaction and lock the room row
// first, then the booking row.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

func dateArg(t time.Time) string { return t.UTC().Format(model.DateLayout) }

func scanBooking(s rowScanner) (*model.Booking, error) {
	var (
		b       model.Booking
		ref     sql.NullString
		payID   sql.NullString
		status  string
		holdEnd sql.NullTime
	)
	err := s.Scan(&b.ID, &b.RoomID, &b.ArrivalDate, &b.DepartureDate, &b.NumberOfGuests, &b.TotalPrice,
		&b.GuestName, &b.GuestEmail, &ref, &payID, &status, &holdEnd, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if ref.Valid {
		b.PaymentReference = &ref.String
	}
	if payID.Valid {
		b.PaymentID = &payID.String
	}
	if holdEnd.Valid {
		t := holdEnd.Time.UTC()
		b.HoldExpiresAt = &t
	}
	b.PaymentStatus = model.PaymentStatus(status)
	return &b, nil
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// OccupiedCounts returns, for every room with at least one occupying
// booking overlapping the stay, the number of units in use. Rooms with
// nothing booked are absent from the map.
func (r *BookingRepo) OccupiedCounts(ctx context.Context, stay model.Stay, now time.Time) (map[uint64]int, error) {
	q := `SELECT room_id, COUNT(*) FROM bookings
          WHERE arrival_date < ? AND departure_date > ? AND ` + occupies + `
          GROUP BY room_id`
	rows, err := r.db.QueryContext(ctx, q, dateArg(stay.Departure), dateArg(stay.Arrival), now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[uint64]int)
	for rows.Next() {
		var (
			roomID uint64
			n      int
		)
		if err := rows.Scan(&roomID, &n); err != nil {
			return nil, err
		}
		counts[roomID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func lockRoomTx(ctx context.Context, tx *sql.Tx, roomID uint64) (int, error) {
	var total int
	err := tx.QueryRowContext(ctx, `SELECT total_quantity FROM rooms WHERE id = ? FOR UPDATE`, roomID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRoomNotFound
	}
	return total, err
}

// countOccupiedTx counts bookings of roomID that occupy a unit during
// stay, ignoring excludeID (0 excludes nothing).
func countOccupiedTx(ctx context.Context, tx *sql.Tx, roomID, excludeID uint64, stay model.Stay, now time.Time) (int, error) {
	q := `SELECT COUNT(*) FROM bookings
          WHERE room_id = ? AND id <> ? AND arrival_date < ? AND departure_date > ? AND ` + occupies
	var n int
	err := tx.QueryRowContext(ctx, q, roomID, excludeID, dateArg(stay.Departure), dateArg(stay.Arrival), now.UTC()).Scan(&n)
	return n, err
}

func expireHolds(ctx context.Context, ex execer, roomID uint64, now time.Time) (int64, error) {
	q := `UPDATE bookings SET payment_status = 'CANCELLED', hold_expires_at = NULL WHERE ` + lapsedHold
	args := []any{now.UTC()}
	if roomID != 0 {
		q += ` AND room_id = ?`
		args = append(args, roomID)
	}
	res, err := ex.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExpireHolds cancels every lapsed hold of roomID, or of all rooms when
// roomID is 0, and returns how many bookings were cancelled.
func (r *BookingRepo) ExpireHolds(ctx context.Context, roomID uint64, now time.Time) (int64, error) {
	return expireHolds(ctx, r.db, roomID, now)
}

// ExpireHold cancels a single booking if its hold has lapsed. It reports
// whether the booking was cancelled; a booking that was paid, already
// cancelled or still held is left alone.
func (r *BookingRepo) ExpireHold(ctx context.Context, id uint64, now time.Time) (bool, error) {
	q := `UPDATE bookings SET payment_status = 'CANCELLED', hold_expires_at = NULL WHERE id = ? AND ` + lapsedHold
	res, err := r.db.ExecContext(ctx, q, id, now.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ReserveTx performs the check-and-insert of a new PENDING booking in a
// single transaction. The room row is locked FOR UPDATE so concurrent
// reservations of the same room type are serialised; lapsed holds are
// expired and occupancy is recounted under that lock. When no unit is
// free ErrSoldOut is returned and nothing is written.
//
// On success b is populated with the stored row, including its id.
func (r *BookingRepo) ReserveTx(ctx context.Context, b *model.Booking, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	total, err := lockRoomTx(ctx, tx, b.RoomID)
	if err != nil {
		return err
	}
	if _, err := expireHolds(ctx, tx, b.RoomID, now); err != nil {
		return fmt.Errorf("expire holds: %w", err)
	}
	used, err := countOccupiedTx(ctx, tx, b.RoomID, 0, b.Stay(), now)
	if err != nil {
		return fmt.Errorf("count occupancy: %w", err)
	}
	if total-used <= 0 {
		return ErrSoldOut
	}
	var hold any
	if b.HoldExpiresAt != nil {
		hold = b.HoldExpiresAt.UTC()
	}
	const ins = `INSERT INTO bookings (room_id, arrival_date, departure_date, number_of_guests, total_price, guest_name, guest_email, payment_status, hold_expires_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?, 'PENDING', ?)`
	res, err := tx.ExecContext(ctx, ins, b.RoomID, dateArg(b.ArrivalDate), dateArg(b.DepartureDate),
		b.NumberOfGuests, b.TotalPrice, b.GuestName, b.GuestEmail, hold)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	saved, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	*b = *saved
	return nil
}

// ConfirmTx moves a PENDING booking to PAID inside a transaction that
// locks the room row and then the booking row, and recounts occupancy
// excluding the booking itself. Confirming an already PAID booking with
// the same payment id returns it unchanged.
//
// When the booking's hold had lapsed and its unit has since been taken,
// the booking is marked FAILED, the transaction commits and ErrSoldOut
// is returned together with the failed booking.
func (r *BookingRepo) ConfirmTx(ctx context.Context, id uint64, paymentID string, now time.Time) (*model.Booking, error) {
	// room_id never changes, so reading it before the transaction is safe
	// and keeps the lock order room -> booking.
	var roomID uint64
	if err := r.db.QueryRowContext(ctx, `SELECT room_id FROM bookings WHERE id = ?`, id).Scan(&roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	total, err := lockRoomTx(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}
	b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	switch b.PaymentStatus {
	case model.PaymentPending:
	case model.PaymentPaid:
		if b.PaymentID != nil && *b.PaymentID == paymentID {
			return b, nil
		}
		return nil, ErrInvalidState
	default:
		return nil, ErrInvalidState
	}
	used, err := countOccupiedTx(ctx, tx, roomID, b.ID, b.Stay(), now)
	if err != nil {
		return nil, fmt.Errorf("count occupancy: %w", err)
	}
	next := model.PaymentPaid
	if total-used <= 0 {
		next = model.PaymentFailed
	}
	const upd = `UPDATE bookings SET payment_status = ?, payment_id = ?, hold_expires_at = NULL WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, string(next), paymentID, b.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	b.PaymentStatus = next
	b.PaymentID = &paymentID
	b.HoldExpiresAt = nil
	b.UpdatedAt = now.UTC()
	if next == model.PaymentFailed {
		return b, ErrSoldOut
	}
	return b, nil
}

// GetByID retrieves a booking by id. It returns ErrBookingNotFound if
// there is no matching row.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// GetByPaymentReference finds the booking that owns a gateway order id.
func (r *BookingRepo) GetByPaymentReference(ctx context.Context, orderID string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE payment_reference = ?`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// ListByStatus returns bookings newest first. An empty status lists all.
func (r *BookingRepo) ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings`
	var args []any
	if status != "" {
		q += ` WHERE payment_status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ListByRange returns every booking whose stay overlaps [from, to),
// ordered by arrival date.
func (r *BookingRepo) ListByRange(ctx context.Context, from, to time.Time) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
          WHERE arrival_date < ? AND departure_date > ?
          ORDER BY arrival_date ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, dateArg(to), dateArg(from))
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// transitionPending applies an UPDATE that is guarded by
// payment_status = 'PENDING'. When no row changed it tells a missing
// booking apart from one in the wrong state.
func (r *BookingRepo) transitionPending(ctx context.Context, id uint64, set string, args ...any) error {
	q := `UPDATE bookings SET ` + set + ` WHERE id = ? AND payment_status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, q, append(args, id)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.PaymentStatus != model.PaymentPending {
		return ErrInvalidState
	}
	// PENDING but unchanged: the new values equal the stored ones.
	return nil
}

// AttachOrder stores the gateway order id on a PENDING booking.
func (r *BookingRepo) AttachOrder(ctx context.Context, id uint64, orderID string) error {
	return r.transitionPending(ctx, id, `payment_reference = ?`, orderID)
}

// Cancel moves a PENDING booking to CANCELLED and releases its hold.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64) error {
	return r.transitionPending(ctx, id, `payment_status = 'CANCELLED', hold_expires_at = NULL`)
}
