package model

import "time"

// Hotel represents a property managed by a hotel manager.  A hotel
// contains multiple room types that carry the actual bookable
// inventory.  This struct corresponds to a row in the `hotels` table.
//
// Fields:
//  ID        – primary key identifier.
//  ManagerID – user ID of the managing account.
//  Name      – display name of the hotel.
//  City      – city the hotel is located in.
//  Address   – street address.
//  Rating    – aggregate guest rating on a 0–5 scale, stored as
//              hundredths (e.g. 450 = 4.5) to keep it exact.
//  CreatedAt – timestamp when the hotel was created.
//  UpdatedAt – timestamp of last update.
type Hotel struct {
    ID        uint64    // hotels.id
    ManagerID uint64    // hotels.manager_id
    Name      string    // hotels.name
    City      string    // hotels.city
    Address   string    // hotels.address
    Rating    uint32    // hotels.rating_hundredths
    CreatedAt time.Time // hotels.created_at
    UpdatedAt time.Time // hotels.updated_at
}
