package model

import "time"

// Room describes one room type of the resort.  A room type is sold in
// TotalQuantity identical units; Capacity bounds the party size of a
// single unit.  Rooms are reference data maintained through the admin
// API and are never written by the booking flow.
//
// Fields:
//  ID            – primary key identifier.
//  Name          – display name shown to guests.
//  Capacity      – maximum guests per unit.
//  TotalQuantity – number of units of this type.
//  PricePerNight – nightly rate in major currency units.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Room struct {
    ID            uint64    // rooms.id
    Name          string    // rooms.name
    Capacity      int       // rooms.capacity
    TotalQuantity int       // rooms.total_quantity
    PricePerNight float64   // rooms.price_per_night
    CreatedAt     time.Time // rooms.created_at
    UpdatedAt     time.Time // rooms.updated_at
}

// Fits reports whether a party of the given size fits into one unit.
func (r Room) Fits(guests int) bool { return guests >= 1 && r.Capacity >= guests }

// PriceFor returns the total price of a stay in this room.
func (r Room) PriceFor(s Stay) float64 { return r.PricePerNight * float64(s.Nights()) }
