package service

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/resort-booking/internal/repository"
)

func TestCatalogCreateAndUpdate(t *testing.T) {
	s := newMemStore()
	svc := NewCatalogService(s)
	ctx := context.Background()

	r, err := svc.CreateRoom(ctx, RoomInput{Name: " Deluxe ", Capacity: 2, TotalQuantity: 3, PricePerNight: 1000})
	if err != nil {
		t.Fatal(err)
	}
	if r.ID == 0 || r.Name != "Deluxe" {
		t.Fatalf("room = %+v", r)
	}
	if _, err := svc.CreateRoom(ctx, RoomInput{Name: "Deluxe", Capacity: 2, TotalQuantity: 1, PricePerNight: 900}); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	up, err := svc.UpdateRoom(ctx, r.ID, RoomInput{Name: "Deluxe", Capacity: 3, TotalQuantity: 3, PricePerNight: 1200})
	if err != nil || up.Capacity != 3 {
		t.Fatalf("update = %+v, %v", up, err)
	}
	if _, err := svc.UpdateRoom(ctx, 99, RoomInput{Name: "X", Capacity: 1, TotalQuantity: 1, PricePerNight: 1}); !errors.Is(err, repository.ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
	rooms, _ := svc.ListRooms(ctx)
	if len(rooms) != 1 || rooms[0].PricePerNight != 1200 {
		t.Fatalf("rooms = %+v", rooms)
	}
}

func TestCatalogValidation(t *testing.T) {
	svc := NewCatalogService(newMemStore())
	bad := []RoomInput{
		{Name: "", Capacity: 1, TotalQuantity: 1, PricePerNight: 1},
		{Name: "A", Capacity: 0, TotalQuantity: 1, PricePerNight: 1},
		{Name: "A", Capacity: 1, TotalQuantity: -1, PricePerNight: 1},
		{Name: "A", Capacity: 1, TotalQuantity: 1, PricePerNight: 0},
	}
	for i, in := range bad {
		var verr *ValidationError
		if _, err := svc.CreateRoom(context.Background(), in); !errors.As(err, &verr) {
			t.Errorf("case %d: err = %v, want ValidationError", i, err)
		}
	}
}
