package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/hotel-room-reservation/internal/model"
)

// HotelRepo encapsulates read access to hotels and their room-type
// inventory.  Availability figures produced here are display-grade
// snapshots; the Ledger re-validates transactionally before any
// reservation commits.
type HotelRepo struct {
    db *sql.DB
}

// NewHotelRepo constructs a HotelRepo given a DB handle.
func NewHotelRepo(db *sql.DB) *HotelRepo {
    return &HotelRepo{db: db}
}

// GetByID loads a single hotel.  Returns ErrHotelNotFound when the ID
// does not exist.
func (r *HotelRepo) GetByID(ctx context.Context, hotelID uint64) (*model.Hotel, error) {
    var h model.Hotel
    err := r.db.QueryRowContext(ctx,
        `SELECT id, manager_id, name, city, address, rating_hundredths, created_at, updated_at
         FROM hotels WHERE id = ?`, hotelID).
        Scan(&h.ID, &h.ManagerID, &h.Name, &h.City, &h.Address, &h.Rating, &h.CreatedAt, &h.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrHotelNotFound
    }
    if err != nil {
        return nil, err
    }
    return &h, nil
}

// HotelRoomRow is one room type of one hotel together with the summed
// quantity of active bookings overlapping the queried interval.  The
// search aggregator folds these rows into hotel-level results.
type HotelRoomRow struct {
    HotelID            uint64
    HotelName          string
    City               string
    Address            string
    RatingHundredths   uint32
    RoomTypeID         uint64
    RoomTypeName       string
    PricePerNightCents int64
    CapacityPerRoom    uint32
    TotalInventory     uint32
    ActiveQuantity     uint32
}

// roomRowSelect is shared between the per-hotel and search queries.
// The correlated subquery applies the same overlap + active predicate
// the Ledger uses, so display availability and transactional checks
// can only disagree by staleness, never by definition.
const roomRowSelect = `SELECT h.id, h.name, h.city, h.address, h.rating_hundredths,
           rt.id, rt.name, rt.price_per_night_cents, rt.capacity_per_room, rt.total_inventory,
           COALESCE((SELECT SUM(l.quantity)
                     FROM booking_room_lines l
                     JOIN bookings b ON b.id = l.booking_id
                     WHERE l.room_type_id = rt.id
                       AND b.check_in < ? AND b.check_out > ?
                       AND ` + activeBookingCond + `), 0) AS active_quantity
    FROM hotels h
    JOIN room_types rt ON rt.hotel_id = h.id`

// RoomRowsByHotel returns every room type of one hotel with its active
// booked quantity for [checkIn, checkOut).
func (r *HotelRepo) RoomRowsByHotel(ctx context.Context, hotelID uint64, checkIn, checkOut, now time.Time) ([]HotelRoomRow, error) {
    query := roomRowSelect + `
    WHERE h.id = ?
    ORDER BY rt.id`
    rows, err := r.db.QueryContext(ctx, query,
        checkOut.UTC().Format("2006-01-02"),
        checkIn.UTC().Format("2006-01-02"),
        now.UTC().Format("2006-01-02 15:04:05"),
        hotelID,
    )
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanHotelRoomRows(rows)
}

func scanHotelRoomRows(rows *sql.Rows) ([]HotelRoomRow, error) {
    out := make([]HotelRoomRow, 0)
    for rows.Next() {
        var row HotelRoomRow
        if err := rows.Scan(
            &row.HotelID, &row.HotelName, &row.City, &row.Address, &row.RatingHundredths,
            &row.RoomTypeID, &row.RoomTypeName, &row.PricePerNightCents,
            &row.CapacityPerRoom, &row.TotalInventory, &row.ActiveQuantity,
        ); err != nil {
            return nil, err
        }
        out = append(out, row)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
