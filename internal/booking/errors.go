// Package booking implements the room inventory core: availability
// computation over the booking ledger and the reservation protocol
// (intent -> confirm / expire, cancel).  All capacity-changing work
// runs inside a single store transaction so concurrent intents on the
// same room type cannot oversell.
package booking

import (
    "errors"
    "fmt"
)

// Sentinel errors raised by the reservation protocol.  Handlers
// translate these into structured client responses; none of them is
// retried.
var (
    // ErrMissingFields is returned when a required intent field is
    // absent (hotel, room lines, dates or guest count).
    ErrMissingFields = errors.New("missing required fields")

    // ErrInvalidDateRange is returned when check-in is not strictly
    // before check-out.
    ErrInvalidDateRange = errors.New("check-out date must be after check-in date")

    // ErrRoomTypeNotFound is returned when a referenced room type does
    // not exist or belongs to a different hotel.
    ErrRoomTypeNotFound = errors.New("room type not found")

    // ErrGuestDetailsRequired is returned when a PAY_AT_HOTEL intent
    // carries no complete guest detail (name + phone).
    ErrGuestDetailsRequired = errors.New("guest details required for pay at hotel")

    // ErrBookingNotFound is returned on confirm/cancel of an unknown
    // booking ID.
    ErrBookingNotFound = errors.New("booking not found")

    // ErrInvalidBookingStatus is returned when confirm is attempted on
    // a booking that is neither PENDING_PAYMENT nor already CONFIRMED.
    ErrInvalidBookingStatus = errors.New("invalid booking status")

    // ErrBookingExpired is returned when confirm is attempted after the
    // hold lapsed.  The capacity is already released by the read-time
    // expiry predicate; the client must create a new intent.
    ErrBookingExpired = errors.New("booking expired")

    // ErrTxConflict signals that the store detected a write conflict
    // (deadlock, lock wait timeout) during the reservation transaction.
    // It is the only error the service retries, a bounded number of
    // times, before surfacing as a transient failure.
    ErrTxConflict = errors.New("transaction conflict")
)

// RoomNotAvailableError reports that a requested quantity exceeds the
// remaining inventory of a room type for the requested dates.
type RoomNotAvailableError struct {
    RoomTypeName string
    Requested    uint32
    Available    uint32
}

func (e *RoomNotAvailableError) Error() string {
    return fmt.Sprintf("room type %q not available: requested %d, available %d",
        e.RoomTypeName, e.Requested, e.Available)
}

// CapacityExceededError reports that the guest count exceeds the summed
// sleeping capacity of the requested basket.
type CapacityExceededError struct {
    MaxGuests uint32
}

func (e *CapacityExceededError) Error() string {
    return fmt.Sprintf("room capacity exceeded: max guests %d", e.MaxGuests)
}
