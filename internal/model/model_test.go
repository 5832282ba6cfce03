package model

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestStayOverlaps(t *testing.T) {
	base := NewStay(day("2025-01-10"), day("2025-01-15"))
	cases := []struct {
		name  string
		other Stay
		want  bool
	}{
		{"identical", NewStay(day("2025-01-10"), day("2025-01-15")), true},
		{"inside", NewStay(day("2025-01-12"), day("2025-01-14")), true},
		{"covering", NewStay(day("2025-01-01"), day("2025-01-31")), true},
		{"straddles start", NewStay(day("2025-01-08"), day("2025-01-11")), true},
		{"back to back after", NewStay(day("2025-01-15"), day("2025-01-18")), false},
		{"back to back before", NewStay(day("2025-01-05"), day("2025-01-10")), false},
		{"disjoint", NewStay(day("2025-02-01"), day("2025-02-03")), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := base.Overlaps(tc.other); got != tc.want {
				t.Fatalf("base.Overlaps(%s) = %v, want %v", tc.other, got, tc.want)
			}
			if got := tc.other.Overlaps(base); got != tc.want {
				t.Fatalf("overlap not symmetric for %s", tc.other)
			}
		})
	}
}

func TestStayNightsAndValid(t *testing.T) {
	s := NewStay(day("2025-03-30"), day("2025-04-02"))
	if s.Nights() != 3 {
		t.Fatalf("Nights = %d, want 3", s.Nights())
	}
	if !s.Valid() {
		t.Fatal("expected valid stay")
	}
	if NewStay(day("2025-04-02"), day("2025-04-02")).Valid() {
		t.Fatal("zero-night stay must be invalid")
	}
	if NewStay(day("2025-04-03"), day("2025-04-02")).Valid() {
		t.Fatal("inverted stay must be invalid")
	}
}

func TestNewStayTruncatesToDate(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	s := NewStay(time.Date(2025, 1, 10, 3, 0, 0, 0, loc), time.Date(2025, 1, 12, 18, 30, 0, 0, time.UTC))
	if got := s.String(); got != "2025-01-09..2025-01-12" {
		t.Fatalf("String = %q", got)
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	if !PaymentPending.CanTransitionTo(PaymentPaid) {
		t.Fatal("PENDING -> PAID must be allowed")
	}
	if !PaymentPending.CanTransitionTo(PaymentCancelled) || !PaymentPending.CanTransitionTo(PaymentFailed) {
		t.Fatal("PENDING -> CANCELLED/FAILED must be allowed")
	}
	for _, s := range []PaymentStatus{PaymentPaid, PaymentFailed, PaymentCancelled} {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
		if s.CanTransitionTo(PaymentPending) {
			t.Fatalf("%s -> PENDING must be rejected", s)
		}
	}
	if _, err := ParsePaymentStatus("REFUNDED"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if st, err := ParsePaymentStatus("PAID"); err != nil || st != PaymentPaid {
		t.Fatalf("ParsePaymentStatus(PAID) = %v, %v", st, err)
	}
}

func TestBookingOccupies(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(10 * time.Minute)
	earlier := now.Add(-time.Minute)
	cases := []struct {
		name string
		b    Booking
		want bool
	}{
		{"paid", Booking{PaymentStatus: PaymentPaid}, true},
		{"pending held", Booking{PaymentStatus: PaymentPending, HoldExpiresAt: &later}, true},
		{"pending lapsed", Booking{PaymentStatus: PaymentPending, HoldExpiresAt: &earlier}, false},
		{"pending no hold", Booking{PaymentStatus: PaymentPending}, false},
		{"cancelled", Booking{PaymentStatus: PaymentCancelled, HoldExpiresAt: &later}, false},
		{"failed", Booking{PaymentStatus: PaymentFailed}, false},
	}
	for _, tc := range cases {
		if got := tc.b.Occupies(now); got != tc.want {
			t.Errorf("%s: Occupies = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRoomFitsAndPrice(t *testing.T) {
	r := Room{Capacity: 2, PricePerNight: 1000}
	if !r.Fits(2) || r.Fits(3) || r.Fits(0) {
		t.Fatal("Fits mismatch")
	}
	if p := r.PriceFor(NewStay(day("2025-01-10"), day("2025-01-13"))); p != 3000 {
		t.Fatalf("PriceFor = %v, want 3000", p)
	}
}
