package model

import "time"

// RoomType describes a bookable category of rooms within a hotel.
// Inventory is tracked per room type rather than per physical room:
// TotalInventory is the number of identical units the hotel operates,
// and availability for a date range is derived by subtracting the
// quantities of overlapping active bookings.
//
// Fields:
//  ID                 – primary key identifier.
//  HotelID            – hotel this room type belongs to.
//  Name               – display name (e.g. "Deluxe King").
//  PricePerNightCents – nightly price in integer cents; always > 0.
//  CapacityPerRoom    – maximum guests a single unit sleeps.
//  TotalInventory     – number of physical rooms of this type; >= 0.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type RoomType struct {
    ID                 uint64    // room_types.id
    HotelID            uint64    // room_types.hotel_id
    Name               string    // room_types.name
    PricePerNightCents int64     // room_types.price_per_night_cents
    CapacityPerRoom    uint32    // room_types.capacity_per_room
    TotalInventory     uint32    // room_types.total_inventory
    CreatedAt          time.Time // room_types.created_at
    UpdatedAt          time.Time // room_types.updated_at
}
