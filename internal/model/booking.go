package model

import "time"

// Booking status values.  EXPIRED is intentionally absent: an expired
// hold keeps the PENDING_PAYMENT status and becomes inactive purely
// through the expires_at timestamp, so no sweeper is required for
// correctness.
const (
    StatusPendingPayment = "PENDING_PAYMENT"
    StatusConfirmed      = "CONFIRMED"
    StatusCancelled      = "CANCELLED"
    StatusCompleted      = "COMPLETED"
)

// Payment mode names recognised by the reservation protocol.
const (
    PaymentModeOnline     = "ONLINE"
    PaymentModePayAtHotel = "PAY_AT_HOTEL"
)

// Booking records a customer's reservation of one or more room types
// within a single hotel for a date range.  The date interval is
// half-open: [CheckIn, CheckOut), so a checkout day is free for a new
// check-in on the same day.  It corresponds to a row in `bookings`.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – booking user; nil for guest / pay-at-hotel flows.
//  HotelID       – hotel being booked.
//  PaymentModeID – resolved payment mode row; nil when unseeded.
//  CheckIn       – first night, UTC midnight.
//  CheckOut      – day of departure, UTC midnight; CheckIn < CheckOut.
//  TotalPriceCents – full basket price in integer cents.
//  Status        – one of the Status* constants above.
//  ExpiresAt     – hold deadline; non-nil iff status is PENDING_PAYMENT.
//  TransactionID – payment reference, set on confirmation.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Booking struct {
    ID              uint64     // bookings.id
    UserID          *uint64    // bookings.user_id (nullable)
    HotelID         uint64     // bookings.hotel_id
    PaymentModeID   *uint64    // bookings.payment_mode_id (nullable)
    CheckIn         time.Time  // bookings.check_in
    CheckOut        time.Time  // bookings.check_out
    TotalPriceCents int64      // bookings.total_price_cents
    Status          string     // bookings.status
    ExpiresAt       *time.Time // bookings.expires_at (nullable)
    TransactionID   *string    // bookings.transaction_id (nullable)
    CreatedAt       time.Time  // bookings.created_at
    UpdatedAt       time.Time  // bookings.updated_at
}

// BookingRoomLine reserves a quantity of one room type under a
// booking.  Lines are immutable once written: cancellation and
// confirmation only ever touch the parent booking row.  The price is
// snapshotted at intent time so later price edits do not rewrite
// history.  Corresponds to a row in `booking_room_lines`.
//
// Fields:
//  ID                 – primary key identifier.
//  BookingID          – parent booking.
//  RoomTypeID         – room type being reserved.
//  Quantity           – number of physical rooms; >= 1.
//  PricePerNightCents – nightly price snapshot in integer cents.
//  CreatedAt          – creation timestamp.
type BookingRoomLine struct {
    ID                 uint64    // booking_room_lines.id
    BookingID          uint64    // booking_room_lines.booking_id
    RoomTypeID         uint64    // booking_room_lines.room_type_id
    Quantity           uint32    // booking_room_lines.quantity
    PricePerNightCents int64     // booking_room_lines.price_per_night_cents
    CreatedAt          time.Time // booking_room_lines.created_at
}

// GuestDetail stores the name and contact of a guest attached to a
// booking.  At least one complete detail (name + phone) is required
// before a PAY_AT_HOTEL booking may be confirmed.  Corresponds to a
// row in `guest_details`.
//
// Fields:
//  ID        – primary key identifier.
//  BookingID – booking the guest belongs to.
//  Name      – guest full name.
//  Phone     – contact phone number.
//  Email     – optional contact email.
//  CreatedAt – creation timestamp.
type GuestDetail struct {
    ID        uint64    // guest_details.id
    BookingID uint64    // guest_details.booking_id
    Name      string    // guest_details.name
    Phone     string    // guest_details.phone
    Email     *string   // guest_details.email (nullable)
    CreatedAt time.Time // guest_details.created_at
}

// IsComplete reports whether the guest detail carries the fields
// required for confirmation.
func (g GuestDetail) IsComplete() bool {
    return g.Name != "" && g.Phone != ""
}
