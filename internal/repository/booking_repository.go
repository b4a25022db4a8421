package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/iliyamo/hotel-room-reservation/internal/model"
)

// BookingRepo provides the read side of bookings for display: listing
// a customer's bookings and fetching a single one with its room lines
// and guest details.  All timestamp fields are assumed to be stored in
// UTC.  Writes go through the Ledger exclusively.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookingDetail encapsulates a booking along with its hotel name, room
// lines and guest details.  It is returned by ListByUser and
// GetByIDForUser for display to customers.
type BookingDetail struct {
    ID              uint64     `json:"id"`
    HotelID         uint64     `json:"hotel_id"`
    HotelName       string     `json:"hotel_name"`
    CheckIn         string     `json:"check_in"`
    CheckOut        string     `json:"check_out"`
    Status          string     `json:"status"`
    TotalPriceCents int64      `json:"total_price_cents"`
    ExpiresAt       *string    `json:"expires_at,omitempty"`
    TransactionID   *string    `json:"transaction_id,omitempty"`
    RoomLines       []struct {
        RoomTypeID         uint64 `json:"room_type_id"`
        RoomTypeName       string `json:"room_type_name"`
        Quantity           uint32 `json:"quantity"`
        PricePerNightCents int64  `json:"price_per_night_cents"`
    } `json:"room_lines"`
    Guests []struct {
        Name  string  `json:"name"`
        Phone string  `json:"phone"`
        Email *string `json:"email,omitempty"`
    } `json:"guests"`
}

// GetByIDForUser returns a single booking for the given user.  When no
// booking with the specified ID exists, sql.ErrNoRows is returned.
// When the booking belongs to a different user, ErrForbidden is
// returned so handlers can distinguish 404 from 403.
func (r *BookingRepo) GetByIDForUser(ctx context.Context, bookingID, userID uint64) (*BookingDetail, error) {
    const q = `SELECT b.id, b.user_id, b.hotel_id, h.name,
                      b.check_in, b.check_out, b.status, b.total_price_cents,
                      b.expires_at, b.transaction_id
               FROM bookings b
               JOIN hotels h ON h.id = b.hotel_id
               WHERE b.id = ?`
    var det BookingDetail
    var ownerID sql.NullInt64
    var checkIn, checkOut time.Time
    var expires sql.NullTime
    var txnID sql.NullString
    err := r.db.QueryRowContext(ctx, q, bookingID).Scan(
        &det.ID, &ownerID, &det.HotelID, &det.HotelName,
        &checkIn, &checkOut, &det.Status, &det.TotalPriceCents,
        &expires, &txnID,
    )
    if err != nil {
        return nil, err
    }
    if !ownerID.Valid || uint64(ownerID.Int64) != userID {
        return nil, ErrForbidden
    }
    det.CheckIn = checkIn.UTC().Format("2006-01-02")
    det.CheckOut = checkOut.UTC().Format("2006-01-02")
    if expires.Valid {
        iso := expires.Time.UTC().Format(time.RFC3339)
        det.ExpiresAt = &iso
    }
    if txnID.Valid {
        ref := txnID.String
        det.TransactionID = &ref
    }
    out := []BookingDetail{det}
    if err := r.populateLinesAndGuests(ctx, out); err != nil {
        return nil, err
    }
    return &out[0], nil
}

// ListByUser returns all bookings for the given user along with hotel,
// room line and guest details.  Bookings are ordered by creation time
// descending (newest first).  When no bookings exist, an empty slice
// is returned.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
    const q = `SELECT b.id, b.hotel_id, h.name,
                      b.check_in, b.check_out, b.status, b.total_price_cents,
                      b.expires_at, b.transaction_id
               FROM bookings b
               JOIN hotels h ON h.id = b.hotel_id
               WHERE b.user_id = ?
               ORDER BY b.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]BookingDetail, 0)
    for rows.Next() {
        var d BookingDetail
        var checkIn, checkOut time.Time
        var expires sql.NullTime
        var txnID sql.NullString
        if err := rows.Scan(
            &d.ID, &d.HotelID, &d.HotelName,
            &checkIn, &checkOut, &d.Status, &d.TotalPriceCents,
            &expires, &txnID,
        ); err != nil {
            return nil, err
        }
        d.CheckIn = checkIn.UTC().Format("2006-01-02")
        d.CheckOut = checkOut.UTC().Format("2006-01-02")
        if expires.Valid {
            iso := expires.Time.UTC().Format(time.RFC3339)
            d.ExpiresAt = &iso
        }
        if txnID.Valid {
            ref := txnID.String
            d.TransactionID = &ref
        }
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if len(details) == 0 {
        return details, nil
    }
    if err := r.populateLinesAndGuests(ctx, details); err != nil {
        return nil, err
    }
    return details, nil
}

// PaymentModeByID loads one payment mode row.  Used to render the mode
// name on published events; sql.ErrNoRows passes through for callers
// that fall back to a default.
func (r *BookingRepo) PaymentModeByID(ctx context.Context, id uint64) (*model.PaymentMode, error) {
    var pm model.PaymentMode
    err := r.db.QueryRowContext(ctx,
        `SELECT id, name, created_at FROM payment_modes WHERE id = ?`, id).
        Scan(&pm.ID, &pm.Name, &pm.CreatedAt)
    if err != nil {
        return nil, err
    }
    return &pm, nil
}

// RoomTypeNames returns the names of every room type booked on one
// booking, ordered by room type ID.  Used to enrich published events.
func (r *BookingRepo) RoomTypeNames(ctx context.Context, bookingID uint64) ([]string, error) {
    const q = `SELECT rt.name
               FROM booking_room_lines l
               JOIN room_types rt ON rt.id = l.room_type_id
               WHERE l.booking_id = ?
               ORDER BY l.room_type_id`
    rows, err := r.db.QueryContext(ctx, q, bookingID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    names := make([]string, 0, 4)
    for rows.Next() {
        var name string
        if err := rows.Scan(&name); err != nil {
            return nil, err
        }
        names = append(names, name)
    }
    return names, rows.Err()
}

// populateLinesAndGuests loads room lines and guest details for all
// bookings in two IN queries rather than one round trip per booking.
func (r *BookingRepo) populateLinesAndGuests(ctx context.Context, details []BookingDetail) error {
    index := make(map[uint64]int, len(details))
    ids := make([]interface{}, 0, len(details))
    placeholders := make([]string, 0, len(details))
    for i := range details {
        details[i].RoomLines = []struct {
            RoomTypeID         uint64 `json:"room_type_id"`
            RoomTypeName       string `json:"room_type_name"`
            Quantity           uint32 `json:"quantity"`
            PricePerNightCents int64  `json:"price_per_night_cents"`
        }{}
        details[i].Guests = []struct {
            Name  string  `json:"name"`
            Phone string  `json:"phone"`
            Email *string `json:"email,omitempty"`
        }{}
        index[details[i].ID] = i
        ids = append(ids, details[i].ID)
        placeholders = append(placeholders, "?")
    }
    in := strings.Join(placeholders, ",")

    lineQuery := `SELECT l.booking_id, l.room_type_id, rt.name, l.quantity, l.price_per_night_cents
                  FROM booking_room_lines l
                  JOIN room_types rt ON rt.id = l.room_type_id
                  WHERE l.booking_id IN (` + in + `)
                  ORDER BY l.booking_id, l.room_type_id`
    lrows, err := r.db.QueryContext(ctx, lineQuery, ids...)
    if err != nil {
        return err
    }
    defer lrows.Close()
    for lrows.Next() {
        var bid, rtID uint64
        var name string
        var qty uint32
        var price int64
        if err := lrows.Scan(&bid, &rtID, &name, &qty, &price); err != nil {
            return err
        }
        idx, ok := index[bid]
        if !ok {
            continue
        }
        details[idx].RoomLines = append(details[idx].RoomLines, struct {
            RoomTypeID         uint64 `json:"room_type_id"`
            RoomTypeName       string `json:"room_type_name"`
            Quantity           uint32 `json:"quantity"`
            PricePerNightCents int64  `json:"price_per_night_cents"`
        }{RoomTypeID: rtID, RoomTypeName: name, Quantity: qty, PricePerNightCents: price})
    }
    if err := lrows.Err(); err != nil {
        return err
    }

    guestQuery := `SELECT booking_id, name, phone, email
                   FROM guest_details
                   WHERE booking_id IN (` + in + `)
                   ORDER BY booking_id, id`
    grows, err := r.db.QueryContext(ctx, guestQuery, ids...)
    if err != nil {
        return err
    }
    defer grows.Close()
    for grows.Next() {
        var bid uint64
        var name, phone string
        var email sql.NullString
        if err := grows.Scan(&bid, &name, &phone, &email); err != nil {
            return err
        }
        idx, ok := index[bid]
        if !ok {
            continue
        }
        g := struct {
            Name  string  `json:"name"`
            Phone string  `json:"phone"`
            Email *string `json:"email,omitempty"`
        }{Name: name, Phone: phone}
        if email.Valid {
            e := email.String
            g.Email = &e
        }
        details[idx].Guests = append(details[idx].Guests, g)
    }
    return grows.Err()
}
