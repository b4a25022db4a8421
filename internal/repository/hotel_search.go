package repository

import (
    "context"
    "strings"
    "time"
)

// SearchRows loads the room rows of every hotel whose name, city or
// address matches the query (case-insensitive substring).  An empty
// query matches all hotels.  Sorting, availability filtering and
// pagination happen in the search aggregator, which needs the full
// filtered set to report a correct total.
func (r *HotelRepo) SearchRows(ctx context.Context, query string, checkIn, checkOut, now time.Time) ([]HotelRoomRow, error) {
    where := []string{}
    args := []any{
        checkOut.UTC().Format("2006-01-02"),
        checkIn.UTC().Format("2006-01-02"),
        now.UTC().Format("2006-01-02 15:04:05"),
    }

    if query != "" {
        like := "%" + strings.ToLower(query) + "%"
        where = append(where, "(LOWER(h.name) LIKE ? OR LOWER(h.city) LIKE ? OR LOWER(h.address) LIKE ?)")
        args = append(args, like, like, like)
    }

    cond := "1=1"
    if len(where) > 0 {
        cond = strings.Join(where, " AND ")
    }

    sqlText := roomRowSelect + `
    WHERE ` + cond + `
    ORDER BY h.id, rt.id`

    rows, err := r.db.QueryContext(ctx, sqlText, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanHotelRoomRows(rows)
}
