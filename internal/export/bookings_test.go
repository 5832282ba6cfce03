package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/resort-booking/internal/model"
)

func TestBookingsWorkbook(t *testing.T) {
	day := func(s string) time.Time { d, _ := model.ParseDate(s); return d }
	order := "order_1"
	bookings := []model.Booking{
		{ID: 7, RoomID: 1, GuestName: "Asha", GuestEmail: "asha@example.com", ArrivalDate: day("2026-12-01"), DepartureDate: day("2026-12-04"), NumberOfGuests: 2, TotalPrice: 7500, PaymentStatus: model.PaymentPaid, PaymentReference: &order},
		{ID: 8, RoomID: 9, GuestName: "Ravi", GuestEmail: "ravi@example.com", ArrivalDate: day("2026-12-02"), DepartureDate: day("2026-12-03"), NumberOfGuests: 1, TotalPrice: 2500, PaymentStatus: model.PaymentPending},
	}

	f, err := Bookings(bookings, map[uint64]string{1: "Deluxe Cottage"}, day("2026-12-01"), day("2026-12-31"))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	f.Close()

	back, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer back.Close()

	cases := map[string]string{
		"A1": "Bookings 2026-12-01 - 2026-12-31",
		"A2": "Booking ID",
		"M2": "Created",
		"A3": "7",
		"B3": "Deluxe Cottage",
		"E3": "2026-12-01",
		"G3": "3",
		"J3": "PAID",
		"K3": "order_1",
		"B4": "#9",
		"J4": "PENDING",
		"K4": "",
	}
	for cell, want := range cases {
		got, err := back.GetCellValue(SheetName, cell)
		if err != nil {
			t.Fatalf("%s: %v", cell, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}
}

func TestBookingsWorkbookCellError(t *testing.T) {
	day := func(s string) time.Time { d, _ := model.ParseDate(s); return d }
	// excelize caps a cell at 32767 characters
	huge := model.Booking{ID: 1, RoomID: 1, GuestName: strings.Repeat("x", 40000),
		ArrivalDate: day("2026-12-01"), DepartureDate: day("2026-12-02"), PaymentStatus: model.PaymentPaid}
	f, err := Bookings([]model.Booking{huge}, nil, day("2026-12-01"), day("2026-12-31"))
	if err == nil || f != nil {
		t.Fatalf("f = %v err = %v, want a row error", f, err)
	}
	if !strings.Contains(err.Error(), "row 3") {
		t.Fatalf("err = %v", err)
	}
}
