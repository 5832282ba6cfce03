package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/iliyamo/resort-booking/internal/model"
	"github.com/iliyamo/resort-booking/internal/payment"
	"github.com/iliyamo/resort-booking/internal/queue"
	"github.com/iliyamo/resort-booking/internal/repository"
)

// memStore is an in-memory RoomStore and BookingLedger that applies the
// same occupancy rules as the MySQL repositories under a single mutex.
type memStore struct {
	mu        sync.Mutex
	rooms     map[uint64]model.Room
	bookings  map[uint64]*model.Booking
	nextRoom  uint64
	nextID    uint64
	reserveFn func() error // optional failure injection
}

func newMemStore(rooms ...model.Room) *memStore {
	s := &memStore{rooms: map[uint64]model.Room{}, bookings: map[uint64]*model.Booking{}}
	for _, r := range rooms {
		s.rooms[r.ID] = r
		if r.ID > s.nextRoom {
			s.nextRoom = r.ID
		}
	}
	return s
}

func (s *memStore) List(_ context.Context) ([]model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetByID(_ context.Context, id uint64) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return &r, nil
}

func (s *memStore) Create(_ context.Context, r *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rooms {
		if existing.Name == r.Name {
			return repository.ErrConflict
		}
	}
	s.nextRoom++
	r.ID = s.nextRoom
	s.rooms[r.ID] = *r
	return nil
}

func (s *memStore) Update(_ context.Context, r *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[r.ID]; !ok {
		return repository.ErrRoomNotFound
	}
	s.rooms[r.ID] = *r
	return nil
}

func (s *memStore) occupiedLocked(roomID, exclude uint64, stay model.Stay, now time.Time) int {
	n := 0
	for _, b := range s.bookings {
		if b.RoomID == roomID && b.ID != exclude && b.Occupies(now) && b.Stay().Overlaps(stay) {
			n++
		}
	}
	return n
}

func (s *memStore) OccupiedCounts(_ context.Context, stay model.Stay, now time.Time) (map[uint64]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uint64]int{}
	for _, b := range s.bookings {
		if b.Occupies(now) && b.Stay().Overlaps(stay) {
			out[b.RoomID]++
		}
	}
	return out, nil
}

func lapsed(b *model.Booking, now time.Time) bool {
	return b.PaymentStatus == model.PaymentPending && b.PaymentReference == nil &&
		b.HoldExpiresAt != nil && !b.HoldExpiresAt.After(now)
}

func (s *memStore) ReserveTx(_ context.Context, b *model.Booking, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reserveFn != nil {
		if err := s.reserveFn(); err != nil {
			return err
		}
	}
	room, ok := s.rooms[b.RoomID]
	if !ok {
		return repository.ErrRoomNotFound
	}
	for _, existing := range s.bookings {
		if existing.RoomID == b.RoomID && lapsed(existing, now) {
			existing.PaymentStatus = model.PaymentCancelled
			existing.HoldExpiresAt = nil
		}
	}
	if room.TotalQuantity-s.occupiedLocked(b.RoomID, 0, b.Stay(), now) <= 0 {
		return repository.ErrSoldOut
	}
	s.nextID++
	b.ID = s.nextID
	b.PaymentStatus = model.PaymentPending
	b.CreatedAt, b.UpdatedAt = now, now
	cp := *b
	s.bookings[b.ID] = &cp
	return nil
}

func (s *memStore) ConfirmTx(_ context.Context, id uint64, paymentID string, now time.Time) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	switch b.PaymentStatus {
	case model.PaymentPending:
	case model.PaymentPaid:
		if b.PaymentID != nil && *b.PaymentID == paymentID {
			cp := *b
			return &cp, nil
		}
		return nil, repository.ErrInvalidState
	default:
		return nil, repository.ErrInvalidState
	}
	pid := paymentID
	b.PaymentID = &pid
	b.HoldExpiresAt = nil
	if s.rooms[b.RoomID].TotalQuantity-s.occupiedLocked(b.RoomID, b.ID, b.Stay(), now) <= 0 {
		b.PaymentStatus = model.PaymentFailed
		cp := *b
		return &cp, repository.ErrSoldOut
	}
	b.PaymentStatus = model.PaymentPaid
	cp := *b
	return &cp, nil
}

func (s *memStore) booking(id uint64) (*model.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) GetBookingByID(id uint64) *model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, _ := s.booking(id)
	return b
}

func (s *memStore) GetByPaymentReference(_ context.Context, orderID string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.PaymentReference != nil && *b.PaymentReference == orderID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (s *memStore) ListByStatus(_ context.Context, status model.PaymentStatus) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Booking{}
	for _, b := range s.bookings {
		if status == "" || b.PaymentStatus == status {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) ListByRange(_ context.Context, from, to time.Time) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	window := model.NewStay(from, to)
	out := []model.Booking{}
	for _, b := range s.bookings {
		if b.Stay().Overlaps(window) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) pending(id uint64) (*model.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	if b.PaymentStatus != model.PaymentPending {
		return nil, repository.ErrInvalidState
	}
	return b, nil
}

func (s *memStore) AttachOrder(_ context.Context, id uint64, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.pending(id)
	if err != nil {
		return err
	}
	ref := orderID
	b.PaymentReference = &ref
	return nil
}

func (s *memStore) Cancel(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.pending(id)
	if err != nil {
		return err
	}
	b.PaymentStatus = model.PaymentCancelled
	b.HoldExpiresAt = nil
	return nil
}

func (s *memStore) ExpireHold(_ context.Context, id uint64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || !lapsed(b, now) {
		return false, nil
	}
	b.PaymentStatus = model.PaymentCancelled
	b.HoldExpiresAt = nil
	return true, nil
}

func (s *memStore) ExpireHolds(_ context.Context, roomID uint64, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, b := range s.bookings {
		if (roomID == 0 || b.RoomID == roomID) && lapsed(b, now) {
			b.PaymentStatus = model.PaymentCancelled
			b.HoldExpiresAt = nil
			n++
		}
	}
	return n, nil
}

// GetByID on memStore serves the RoomCatalog; bookings are looked up
// through ledgerView so one value can satisfy both interfaces.
type ledgerView struct{ *memStore }

func (l ledgerView) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.booking(id)
}

// fakeGateway accepts signature "sig:<order>|<payment>".
type fakeGateway struct {
	mu        sync.Mutex
	orders    int
	verified  int
	createErr error
}

func sig(orderID, paymentID string) string { return "sig:" + orderID + "|" + paymentID }

func (g *fakeGateway) Name() string  { return "fake" }
func (g *fakeGateway) KeyID() string { return "key_fake" }

func (g *fakeGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, &payment.GatewayError{Gateway: "fake", Op: "create order", Err: g.createErr}
	}
	g.orders++
	return &payment.Order{ID: "order_" + strconv.Itoa(g.orders), Amount: req.Amount, Currency: req.Currency}, nil
}

func (g *fakeGateway) VerifyPayment(_ context.Context, orderID, paymentID, signature string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verified++
	if signature != sig(orderID, paymentID) {
		return payment.ErrSignatureMismatch
	}
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.BookingPaidEvent
	err    error
}

func (p *fakePublisher) PublishBookingPaid(_ context.Context, ev queue.BookingPaidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls map[uint64]time.Time
}

func (f *fakeScheduler) ScheduleHoldExpiry(_ context.Context, id uint64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[uint64]time.Time{}
	}
	f.calls[id] = at
	return nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var errBoom = errors.New("boom")
