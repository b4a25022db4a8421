package booking

import (
    "context"
    "time"

    "github.com/iliyamo/hotel-room-reservation/internal/model"
)

// Store is the persistence contract the reservation protocol runs
// against.  The SQL implementation lives in internal/repository; tests
// substitute an in-memory ledger.  Non-transactional reads are
// best-effort and may be stale by the time a booking is attempted –
// every reservation re-validates capacity inside InTx before writing.
type Store interface {
    // InTx executes fn within one transaction whose isolation must make
    // the capacity reads and reservation writes atomic with respect to
    // concurrent transactions on the same room types.  A conflict
    // detected by the store surfaces as ErrTxConflict, which the
    // service retries with a fresh transaction.
    InTx(ctx context.Context, fn func(tx Tx) error) error

    // RoomTypeByID loads a room type outside any transaction.  Returns
    // ErrRoomTypeNotFound when no such row exists.
    RoomTypeByID(ctx context.Context, roomTypeID uint64) (*model.RoomType, error)

    // ActiveQuantity sums the quantities of active booking lines for
    // the room type whose [check_in, check_out) interval overlaps the
    // given one.  Active means CONFIRMED, or PENDING_PAYMENT with
    // expires_at after now.
    ActiveQuantity(ctx context.Context, roomTypeID uint64, checkIn, checkOut, now time.Time) (uint32, error)
}

// Tx is the transactional view of the ledger used while creating,
// confirming or cancelling a booking.  Implementations must scope row
// locks to the touched room types; a global lock would serialize
// unrelated hotels.
type Tx interface {
    // RoomTypeForUpdate loads a room type and locks its row for the
    // remainder of the transaction, serializing concurrent capacity
    // checks on the same type.  Returns ErrRoomTypeNotFound when no
    // such row exists.
    RoomTypeForUpdate(ctx context.Context, roomTypeID uint64) (*model.RoomType, error)

    // ActiveQuantity is the in-transaction counterpart of
    // Store.ActiveQuantity.  Called after RoomTypeForUpdate it observes
    // a consistent snapshot for the locked room type.
    ActiveQuantity(ctx context.Context, roomTypeID uint64, checkIn, checkOut, now time.Time) (uint32, error)

    // PaymentModeIDByName resolves a payment mode name to its row ID.
    // A missing row yields (nil, nil) so unseeded databases degrade to
    // a NULL reference instead of failing the booking.
    PaymentModeIDByName(ctx context.Context, name string) (*uint64, error)

    // InsertBooking writes the booking row and populates its ID.
    InsertBooking(ctx context.Context, b *model.Booking) error

    // InsertRoomLines writes all basket lines for a booking.
    InsertRoomLines(ctx context.Context, lines []model.BookingRoomLine) error

    // InsertGuestDetails attaches guest details to a booking.
    InsertGuestDetails(ctx context.Context, bookingID uint64, guests []model.GuestDetail) error

    // BookingForUpdate loads a booking and locks its row.  Returns
    // ErrBookingNotFound when no such row exists.
    BookingForUpdate(ctx context.Context, bookingID uint64) (*model.Booking, error)

    // MarkConfirmed transitions a booking to CONFIRMED, clears
    // expires_at and records the payment reference.
    MarkConfirmed(ctx context.Context, bookingID uint64, transactionID string) error

    // MarkCancelled transitions a booking to CANCELLED.  Cancellation
    // is what frees capacity: the availability predicate only counts
    // active statuses, so no further bookkeeping happens.
    MarkCancelled(ctx context.Context, bookingID uint64) error
}
