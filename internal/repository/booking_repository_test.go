package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/resort-booking/internal/model"
)

var (
	testNow  = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	arrival  = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	depart   = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	bookCols = []string{"id", "room_id", "arrival_date", "departure_date", "number_of_guests", "total_price",
		"guest_name", "guest_email", "payment_reference", "payment_id", "payment_status", "hold_expires_at",
		"created_at", "updated_at"}
)

func q(s string) string { return regexp.QuoteMeta(s) }

func bookingRow(id int64, status string, ref, payID, hold driver.Value) *sqlmock.Rows {
	return sqlmock.NewRows(bookCols).AddRow(id, int64(1), arrival, depart, 2, 5000.0,
		"Asha", "asha@example.com", ref, payID, status, hold, testNow, testNow)
}

func newMock(t *testing.T) (*BookingRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewBookingRepo(db), mock
}

func pendingBooking() *model.Booking {
	hold := testNow.Add(15 * time.Minute)
	return &model.Booking{RoomID: 1, ArrivalDate: arrival, DepartureDate: depart, NumberOfGuests: 2,
		TotalPrice: 5000, GuestName: "Asha", GuestEmail: "asha@example.com", HoldExpiresAt: &hold}
}

// The expected order below is what makes check-and-insert atomic in MySQL:
// the room row is locked FOR UPDATE, then occupancy is counted, then the
// booking is inserted, all before commit.  A second reservation for the
// same room blocks on the lock until this one commits.  The concurrent
// reservation test in internal/service runs against an in-memory fake and
// does not exercise this path.
func TestReserveTxInsertsWhenUnitFree(t *testing.T) {
	repo, mock := newMock(t)
	hold := testNow.Add(15 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT total_quantity FROM rooms WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"total_quantity"}).AddRow(2))
	mock.ExpectExec(q("UPDATE bookings SET payment_status = 'CANCELLED'")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM bookings")).
		WithArgs(uint64(1), uint64(0), "2025-01-15", "2025-01-10", testNow).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectExec(q("INSERT INTO bookings")).
		WithArgs(uint64(1), "2025-01-10", "2025-01-15", 2, 5000.0, "Asha", "asha@example.com", hold).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery(q("FROM bookings WHERE id = ?")).WithArgs(int64(42)).
		WillReturnRows(bookingRow(42, "PENDING", nil, nil, hold))
	mock.ExpectCommit()

	b := pendingBooking()
	if err := repo.ReserveTx(context.Background(), b, testNow); err != nil {
		t.Fatalf("ReserveTx: %v", err)
	}
	if b.ID != 42 || b.PaymentStatus != model.PaymentPending {
		t.Fatalf("unexpected booking %+v", b)
	}
	if b.HoldExpiresAt == nil || !b.HoldExpiresAt.Equal(hold) {
		t.Fatalf("hold not loaded: %v", b.HoldExpiresAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestReserveTxSoldOut(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).WillReturnRows(sqlmock.NewRows([]string{"total_quantity"}).AddRow(1))
	mock.ExpectExec(q("UPDATE bookings")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT COUNT(*)")).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.ReserveTx(context.Background(), pendingBooking(), testNow)
	if !errors.Is(err, ErrSoldOut) {
		t.Fatalf("err = %v, want ErrSoldOut", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestReserveTxUnknownRoom(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).WillReturnRows(sqlmock.NewRows([]string{"total_quantity"}))
	mock.ExpectRollback()

	if err := repo.ReserveTx(context.Background(), pendingBooking(), testNow); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
}

func expectConfirmPrelude(mock sqlmock.Sqlmock, total int, row *sqlmock.Rows) {
	mock.ExpectQuery(q("SELECT room_id FROM bookings WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow(int64(1)))
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT total_quantity FROM rooms WHERE id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"total_quantity"}).AddRow(total))
	mock.ExpectQuery(q("FROM bookings WHERE id = ? FOR UPDATE")).WillReturnRows(row)
}

func TestConfirmTxMarksPaid(t *testing.T) {
	repo, mock := newMock(t)
	hold := testNow.Add(5 * time.Minute)
	expectConfirmPrelude(mock, 1, bookingRow(7, "PENDING", "order_1", nil, hold))
	mock.ExpectQuery(q("SELECT COUNT(*)")).
		WithArgs(uint64(1), uint64(7), "2025-01-15", "2025-01-10", testNow).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(q("UPDATE bookings SET payment_status = ?, payment_id = ?")).
		WithArgs("PAID", "pay_1", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := repo.ConfirmTx(context.Background(), 7, "pay_1", testNow)
	if err != nil {
		t.Fatalf("ConfirmTx: %v", err)
	}
	if b.PaymentStatus != model.PaymentPaid || b.PaymentID == nil || *b.PaymentID != "pay_1" || b.HoldExpiresAt != nil {
		t.Fatalf("unexpected booking %+v", b)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestConfirmTxFailsWhenInventoryGone(t *testing.T) {
	repo, mock := newMock(t)
	lapsed := testNow.Add(-time.Minute)
	expectConfirmPrelude(mock, 1, bookingRow(7, "PENDING", "order_1", nil, lapsed))
	mock.ExpectQuery(q("SELECT COUNT(*)")).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectExec(q("UPDATE bookings SET payment_status = ?")).
		WithArgs("FAILED", "pay_1", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := repo.ConfirmTx(context.Background(), 7, "pay_1", testNow)
	if !errors.Is(err, ErrSoldOut) {
		t.Fatalf("err = %v, want ErrSoldOut", err)
	}
	if b == nil || b.PaymentStatus != model.PaymentFailed {
		t.Fatalf("booking should be FAILED, got %+v", b)
	}
}

func TestConfirmTxIdempotentForSamePayment(t *testing.T) {
	repo, mock := newMock(t)
	expectConfirmPrelude(mock, 1, bookingRow(7, "PAID", "order_1", "pay_1", nil))
	mock.ExpectRollback()

	b, err := repo.ConfirmTx(context.Background(), 7, "pay_1", testNow)
	if err != nil || b.PaymentStatus != model.PaymentPaid {
		t.Fatalf("got %+v, %v", b, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestConfirmTxRejectsTerminalStates(t *testing.T) {
	cases := []struct {
		status string
		payID  driver.Value
	}{
		{"PAID", "pay_other"},
		{"CANCELLED", nil},
		{"FAILED", nil},
	}
	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			repo, mock := newMock(t)
			expectConfirmPrelude(mock, 1, bookingRow(7, tc.status, "order_1", tc.payID, nil))
			mock.ExpectRollback()
			if _, err := repo.ConfirmTx(context.Background(), 7, "pay_1", testNow); !errors.Is(err, ErrInvalidState) {
				t.Fatalf("err = %v, want ErrInvalidState", err)
			}
		})
	}
}

func TestConfirmTxUnknownBooking(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(q("SELECT room_id FROM bookings")).WillReturnRows(sqlmock.NewRows([]string{"room_id"}))
	if _, err := repo.ConfirmTx(context.Background(), 99, "pay", testNow); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("err = %v, want ErrBookingNotFound", err)
	}
}

func TestOccupiedCounts(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(q("GROUP BY room_id")).
		WithArgs("2025-01-15", "2025-01-10", testNow).
		WillReturnRows(sqlmock.NewRows([]string{"room_id", "n"}).AddRow(int64(1), 2).AddRow(int64(3), 1))

	got, err := repo.OccupiedCounts(context.Background(), model.NewStay(arrival, depart), testNow)
	if err != nil {
		t.Fatal(err)
	}
	if got[1] != 2 || got[3] != 1 || len(got) != 2 {
		t.Fatalf("counts = %v", got)
	}
}

func TestAttachOrderRejectsNonPending(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(q("UPDATE bookings SET payment_reference = ?")).
		WithArgs("order_1", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("FROM bookings WHERE id = ?")).WillReturnRows(bookingRow(7, "CANCELLED", nil, nil, nil))

	if err := repo.AttachOrder(context.Background(), 7, "order_1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestCancelMissingBooking(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(q("UPDATE bookings SET payment_status = 'CANCELLED'")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("FROM bookings WHERE id = ?")).WillReturnRows(sqlmock.NewRows(bookCols))

	if err := repo.Cancel(context.Background(), 7); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("err = %v, want ErrBookingNotFound", err)
	}
}

func TestExpireHold(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(q("payment_reference IS NULL")).
		WithArgs(uint64(7), testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.ExpireHold(context.Background(), 7, testNow)
	if err != nil || !ok {
		t.Fatalf("ExpireHold = %v, %v", ok, err)
	}
}

func TestExpireHoldsSweep(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(q("hold_expires_at <= ?")).
		WithArgs(testNow).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(q("hold_expires_at <= ? AND room_id = ?")).
		WithArgs(testNow, uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if n, err := repo.ExpireHolds(context.Background(), 0, testNow); err != nil || n != 3 {
		t.Fatalf("all rooms = %d, %v", n, err)
	}
	if n, err := repo.ExpireHolds(context.Background(), 2, testNow); err != nil || n != 1 {
		t.Fatalf("room 2 = %d, %v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestListByStatusFilters(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(q("WHERE payment_status = ? ORDER BY id DESC")).
		WithArgs("PAID").
		WillReturnRows(bookingRow(1, "PAID", "o", "p", nil))

	list, err := repo.ListByStatus(context.Background(), model.PaymentPaid)
	if err != nil || len(list) != 1 || list[0].PaymentReference == nil || *list[0].PaymentReference != "o" {
		t.Fatalf("ListByStatus = %+v, %v", list, err)
	}
}
