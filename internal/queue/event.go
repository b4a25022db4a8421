// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published whenever a booking transitions
// into CONFIRMED: on an ONLINE confirm and on a PAY_AT_HOTEL intent.
// It contains enough information for downstream consumers to log,
// notify, or trigger analytics without querying the primary database.
type BookingConfirmedEvent struct {
    BookingID       uint64   `json:"booking_id"`
    UserID          *uint64  `json:"user_id,omitempty"`
    HotelID         uint64   `json:"hotel_id"`
    HotelName       string   `json:"hotel_name"`
    CheckIn         string   `json:"check_in"`
    CheckOut        string   `json:"check_out"`
    RoomTypeNames   []string `json:"room_types"`
    PaymentMode     string   `json:"payment_mode"`
    TransactionID   string   `json:"transaction_id"`
    TotalPriceCents int64    `json:"total_price_cents"`
    ConfirmedAt     string   `json:"confirmed_at"`
}
