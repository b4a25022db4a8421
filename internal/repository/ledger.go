package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/hotel-room-reservation/internal/booking"
    "github.com/iliyamo/hotel-room-reservation/internal/model"
)

// activeBookingCond is the predicate that decides whether a booking
// still consumes inventory.  Expiry is derived at read time: a lapsed
// PENDING_PAYMENT hold simply stops matching, no sweeper needed.  The
// single placeholder is the current UTC time.
const activeBookingCond = `(b.status = 'CONFIRMED' OR (b.status = 'PENDING_PAYMENT' AND b.expires_at > ?))`

// MySQL error numbers that indicate the transaction lost a race and
// should be replayed from the capacity check.
const (
    mysqlErrLockDeadlock    = 1213
    mysqlErrLockWaitTimeout = 1205
)

// Ledger is the SQL implementation of booking.Store.  It owns the
// inventory source of truth: room type capacity plus every booking
// line that consumes it.  All timestamps are stored and compared in
// UTC.
type Ledger struct {
    db *sql.DB
}

// NewLedger returns a Ledger bound to the given database.
func NewLedger(db *sql.DB) *Ledger { return &Ledger{db: db} }

// DB exposes the underlying handle for repositories that share it.
func (l *Ledger) DB() *sql.DB { return l.db }

// InTx runs fn inside a single transaction.  Deadlocks and lock wait
// timeouts roll back and surface as booking.ErrTxConflict so the
// service can replay the whole check-and-reserve sequence.
func (l *Ledger) InTx(ctx context.Context, fn func(tx booking.Tx) error) error {
    tx, err := l.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(&ledgerTx{tx: tx}); err != nil {
        return mapConflict(err)
    }
    if err := tx.Commit(); err != nil {
        return mapConflict(err)
    }
    committed = true
    return nil
}

// RoomTypeByID loads a room type without locking.  Used for the
// display-grade availability path.
func (l *Ledger) RoomTypeByID(ctx context.Context, roomTypeID uint64) (*model.RoomType, error) {
    return scanRoomType(l.db.QueryRowContext(ctx,
        `SELECT id, hotel_id, name, price_per_night_cents, capacity_per_room, total_inventory, created_at, updated_at
         FROM room_types WHERE id = ?`, roomTypeID))
}

// ActiveQuantity sums the booked quantity of a room type over all
// active bookings overlapping [checkIn, checkOut).  The overlap test
// is the half-open one: existing.check_in < checkOut AND
// existing.check_out > checkIn.
func (l *Ledger) ActiveQuantity(ctx context.Context, roomTypeID uint64, checkIn, checkOut, now time.Time) (uint32, error) {
    return activeQuantity(ctx, l.db, roomTypeID, checkIn, checkOut, now)
}

// ledgerTx adapts a *sql.Tx to booking.Tx.
type ledgerTx struct {
    tx *sql.Tx
}

// RoomTypeForUpdate locks the room type row for the duration of the
// transaction.  The lock is what linearizes concurrent capacity checks
// on the same type; rows of other hotels stay untouched.
func (t *ledgerTx) RoomTypeForUpdate(ctx context.Context, roomTypeID uint64) (*model.RoomType, error) {
    return scanRoomType(t.tx.QueryRowContext(ctx,
        `SELECT id, hotel_id, name, price_per_night_cents, capacity_per_room, total_inventory, created_at, updated_at
         FROM room_types WHERE id = ? FOR UPDATE`, roomTypeID))
}

func (t *ledgerTx) ActiveQuantity(ctx context.Context, roomTypeID uint64, checkIn, checkOut, now time.Time) (uint32, error) {
    return activeQuantity(ctx, t.tx, roomTypeID, checkIn, checkOut, now)
}

// PaymentModeIDByName resolves a payment mode row.  A missing row is
// reported as (nil, nil) so an unseeded payment_modes table degrades
// to a NULL reference instead of failing the booking.
func (t *ledgerTx) PaymentModeIDByName(ctx context.Context, name string) (*uint64, error) {
    var id uint64
    err := t.tx.QueryRowContext(ctx, `SELECT id FROM payment_modes WHERE name = ?`, name).Scan(&id)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &id, nil
}

// InsertBooking writes the booking row and populates the generated ID
// plus timestamp defaults on the provided record.
func (t *ledgerTx) InsertBooking(ctx context.Context, b *model.Booking) error {
    var expires interface{}
    if b.ExpiresAt != nil {
        expires = b.ExpiresAt.UTC().Format("2006-01-02 15:04:05")
    }
    res, err := t.tx.ExecContext(ctx,
        `INSERT INTO bookings (user_id, hotel_id, payment_mode_id, check_in, check_out, total_price_cents, status, expires_at, transaction_id)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
        b.UserID, b.HotelID, b.PaymentModeID,
        b.CheckIn.UTC().Format("2006-01-02"), b.CheckOut.UTC().Format("2006-01-02"),
        b.TotalPriceCents, b.Status, expires, b.TransactionID,
    )
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    return nil
}

// InsertRoomLines writes all basket lines in a single statement.
// Passing an empty slice has no effect and returns nil.
func (t *ledgerTx) InsertRoomLines(ctx context.Context, lines []model.BookingRoomLine) error {
    if len(lines) == 0 {
        return nil
    }
    query := `INSERT INTO booking_room_lines (booking_id, room_type_id, quantity, price_per_night_cents) VALUES `
    args := make([]interface{}, 0, len(lines)*4)
    for i, line := range lines {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?)"
        args = append(args, line.BookingID, line.RoomTypeID, line.Quantity, line.PricePerNightCents)
    }
    _, err := t.tx.ExecContext(ctx, query, args...)
    return err
}

// InsertGuestDetails writes guest rows for a booking in one statement.
func (t *ledgerTx) InsertGuestDetails(ctx context.Context, bookingID uint64, guests []model.GuestDetail) error {
    if len(guests) == 0 {
        return nil
    }
    query := `INSERT INTO guest_details (booking_id, name, phone, email) VALUES `
    args := make([]interface{}, 0, len(guests)*4)
    for i, g := range guests {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?)"
        args = append(args, bookingID, g.Name, g.Phone, g.Email)
    }
    _, err := t.tx.ExecContext(ctx, query, args...)
    return err
}

// BookingForUpdate loads and locks a booking row so confirm and cancel
// cannot race each other or a cleanup sweep.
func (t *ledgerTx) BookingForUpdate(ctx context.Context, bookingID uint64) (*model.Booking, error) {
    row := t.tx.QueryRowContext(ctx,
        `SELECT id, user_id, hotel_id, payment_mode_id, check_in, check_out, total_price_cents, status, expires_at, transaction_id, created_at, updated_at
         FROM bookings WHERE id = ? FOR UPDATE`, bookingID)
    b, err := scanBooking(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, booking.ErrBookingNotFound
    }
    return b, err
}

// MarkConfirmed finalises the hold: status CONFIRMED, expiry cleared,
// payment reference recorded.
func (t *ledgerTx) MarkConfirmed(ctx context.Context, bookingID uint64, transactionID string) error {
    _, err := t.tx.ExecContext(ctx,
        `UPDATE bookings SET status = 'CONFIRMED', expires_at = NULL, transaction_id = ? WHERE id = ?`,
        transactionID, bookingID)
    return err
}

// MarkCancelled keeps the row for audit and flips only the status.
func (t *ledgerTx) MarkCancelled(ctx context.Context, bookingID uint64) error {
    _, err := t.tx.ExecContext(ctx,
        `UPDATE bookings SET status = 'CANCELLED' WHERE id = ?`, bookingID)
    return err
}

// querier lets the overlap count run on either the pool or a tx.
type querier interface {
    QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func activeQuantity(ctx context.Context, q querier, roomTypeID uint64, checkIn, checkOut, now time.Time) (uint32, error) {
    const query = `SELECT COALESCE(SUM(l.quantity), 0)
                   FROM booking_room_lines l
                   JOIN bookings b ON b.id = l.booking_id
                   WHERE l.room_type_id = ?
                     AND b.check_in < ? AND b.check_out > ?
                     AND ` + activeBookingCond
    var total uint32
    err := q.QueryRowContext(ctx, query,
        roomTypeID,
        checkOut.UTC().Format("2006-01-02"),
        checkIn.UTC().Format("2006-01-02"),
        now.UTC().Format("2006-01-02 15:04:05"),
    ).Scan(&total)
    if err != nil {
        return 0, err
    }
    return total, nil
}

func scanRoomType(row *sql.Row) (*model.RoomType, error) {
    var rt model.RoomType
    err := row.Scan(&rt.ID, &rt.HotelID, &rt.Name, &rt.PricePerNightCents,
        &rt.CapacityPerRoom, &rt.TotalInventory, &rt.CreatedAt, &rt.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, booking.ErrRoomTypeNotFound
    }
    if err != nil {
        return nil, err
    }
    return &rt, nil
}

func scanBooking(row *sql.Row) (*model.Booking, error) {
    var b model.Booking
    var userID, modeID sql.NullInt64
    var expires sql.NullTime
    var txnID sql.NullString
    err := row.Scan(&b.ID, &userID, &b.HotelID, &modeID, &b.CheckIn, &b.CheckOut,
        &b.TotalPriceCents, &b.Status, &expires, &txnID, &b.CreatedAt, &b.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if userID.Valid {
        uid := uint64(userID.Int64)
        b.UserID = &uid
    }
    if modeID.Valid {
        mid := uint64(modeID.Int64)
        b.PaymentModeID = &mid
    }
    if expires.Valid {
        e := expires.Time.UTC()
        b.ExpiresAt = &e
    }
    if txnID.Valid {
        ref := txnID.String
        b.TransactionID = &ref
    }
    return &b, nil
}

// mapConflict rewrites MySQL lock errors into the retryable conflict
// sentinel; everything else passes through untouched.
func mapConflict(err error) error {
    var myErr *mysql.MySQLError
    if errors.As(err, &myErr) {
        if myErr.Number == mysqlErrLockDeadlock || myErr.Number == mysqlErrLockWaitTimeout {
            return booking.ErrTxConflict
        }
    }
    return err
}
