// Package export renders bookings as spreadsheets for resort staff.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/resort-booking/internal/model"
)

// SheetName is the single sheet of the bookings workbook.
const SheetName = "Bookings"

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var headers = []string{
	"Booking ID", "Room", "Guest", "Email", "Arrival", "Departure",
	"Nights", "Guests", "Total", "Status", "Order", "Payment", "Created",
}

var statusFill = map[model.PaymentStatus]string{
	model.PaymentPaid:      "#E2EFDA",
	model.PaymentPending:   "#FFF2CC",
	model.PaymentFailed:    "#F8CBAD",
	model.PaymentCancelled: "#D9D9D9",
}

// Bookings builds a workbook with a period title in row 1, headers in
// row 2 and one booking per row after that.  roomNames maps room ids to
// display names; unknown ids are written as "#<id>".  The first excelize
// error aborts the export.
func Bookings(bookings []model.Booking, roomNames map[uint64]string, from, to time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := fill(f, bookings, roomNames, from, to); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func fill(f *excelize.File, bookings []model.Booking, roomNames map[uint64]string, from, to time.Time) error {
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	title := fmt.Sprintf("Bookings %s - %s", from.Format(model.DateLayout), to.Format(model.DateLayout))
	if err := f.SetCellValue(SheetName, "A1", title); err != nil {
		return fmt.Errorf("title: %w", err)
	}

	headStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A2", &headers); err != nil {
		return fmt.Errorf("header row: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 2)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A2", last, headStyle); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	styles := make(map[model.PaymentStatus]int, len(statusFill))
	for st, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}})
		if err != nil {
			return fmt.Errorf("%s style: %w", st, err)
		}
		styles[st] = id
	}

	for i, b := range bookings {
		row := i + 3
		room, ok := roomNames[b.RoomID]
		if !ok {
			room = fmt.Sprintf("#%d", b.RoomID)
		}
		values := []interface{}{
			b.ID, room, b.GuestName, b.GuestEmail,
			b.ArrivalDate.Format(model.DateLayout), b.DepartureDate.Format(model.DateLayout),
			b.Stay().Nights(), b.NumberOfGuests, b.TotalPrice, string(b.PaymentStatus),
			deref(b.PaymentReference), deref(b.PaymentID), b.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(SheetName, fmt.Sprintf("A%d", row), &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		if id, ok := styles[b.PaymentStatus]; ok {
			cell := fmt.Sprintf("J%d", row)
			if err := f.SetCellStyle(SheetName, cell, cell, id); err != nil {
				return fmt.Errorf("status style row %d: %w", row, err)
			}
		}
	}
	if err := f.SetColWidth(SheetName, "B", "D", 24); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
