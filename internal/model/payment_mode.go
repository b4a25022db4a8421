package model

import "time"

// PaymentMode is a seeded lookup row naming a way to pay (ONLINE,
// PAY_AT_HOTEL).  Bookings reference it by ID; when the table is not
// seeded the reference is left NULL rather than failing the booking.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – unique mode name.
//  CreatedAt – creation timestamp.
type PaymentMode struct {
    ID        uint64    // payment_modes.id
    Name      string    // payment_modes.name
    CreatedAt time.Time // payment_modes.created_at
}
