// Package search folds room-level availability rows into hotel-level
// search results: availability filtering, starting price, sorting and
// pagination.  It is deliberately free of storage concerns so the
// aggregation rules can be tested against fixture rows.
package search

import (
    "sort"

    "github.com/iliyamo/hotel-room-reservation/internal/booking"
    "github.com/iliyamo/hotel-room-reservation/internal/repository"
)

// Sort orders accepted by the hotel search.
const (
    SortRating    = "rating"
    SortPriceLow  = "price_low"
    SortPriceHigh = "price_high"
)

// Options controls filtering, ordering and pagination of a search.
// Guests restricts the availability filter to room types that sleep at
// least that many people; zero disables the restriction.
type Options struct {
    Guests   uint32
    SortBy   string
    Page     int
    PageSize int
}

// RoomTypeSummary is the availability of one room type for the
// requested interval.
type RoomTypeSummary struct {
    ID                 uint64 `json:"id"`
    Name               string `json:"name"`
    PricePerNightCents int64  `json:"price_per_night_cents"`
    CapacityPerRoom    uint32 `json:"capacity_per_room"`
    Available          uint32 `json:"available"`
}

// HotelSummary is one hotel in a search result page.
type HotelSummary struct {
    ID               uint64            `json:"id"`
    Name             string            `json:"name"`
    City             string            `json:"city"`
    Address          string            `json:"address"`
    Rating           float64           `json:"rating"`
    LowestPriceCents int64             `json:"lowest_price_cents"`
    RoomTypes        []RoomTypeSummary `json:"room_types"`
}

// Aggregate groups room rows by hotel, drops hotels without a single
// available room type, sorts and slices out the requested page.  The
// returned total is the size of the full filtered set, not the page
// length, so pagination metadata stays correct past page one.
func Aggregate(rows []repository.HotelRoomRow, opts Options) ([]HotelSummary, int) {
    if opts.Page < 1 {
        opts.Page = 1
    }
    if opts.PageSize < 1 {
        opts.PageSize = 12
    }

    byHotel := make(map[uint64]*HotelSummary)
    ratings := make(map[uint64]uint32)
    order := make([]uint64, 0)
    for _, row := range rows {
        h, ok := byHotel[row.HotelID]
        if !ok {
            h = &HotelSummary{
                ID:      row.HotelID,
                Name:    row.HotelName,
                City:    row.City,
                Address: row.Address,
                Rating:  float64(row.RatingHundredths) / 100,
            }
            byHotel[row.HotelID] = h
            ratings[row.HotelID] = row.RatingHundredths
            order = append(order, row.HotelID)
        }
        if h.LowestPriceCents == 0 || row.PricePerNightCents < h.LowestPriceCents {
            h.LowestPriceCents = row.PricePerNightCents
        }
        h.RoomTypes = append(h.RoomTypes, RoomTypeSummary{
            ID:                 row.RoomTypeID,
            Name:               row.RoomTypeName,
            PricePerNightCents: row.PricePerNightCents,
            CapacityPerRoom:    row.CapacityPerRoom,
            Available:          booking.Subtract(row.TotalInventory, row.ActiveQuantity),
        })
    }

    filtered := make([]HotelSummary, 0, len(order))
    for _, id := range order {
        h := byHotel[id]
        if hasAvailableRoom(h.RoomTypes, opts.Guests) {
            filtered = append(filtered, *h)
        }
    }

    switch opts.SortBy {
    case SortPriceLow:
        sort.Slice(filtered, func(i, j int) bool {
            if filtered[i].LowestPriceCents != filtered[j].LowestPriceCents {
                return filtered[i].LowestPriceCents < filtered[j].LowestPriceCents
            }
            return filtered[i].ID < filtered[j].ID
        })
    case SortPriceHigh:
        sort.Slice(filtered, func(i, j int) bool {
            if filtered[i].LowestPriceCents != filtered[j].LowestPriceCents {
                return filtered[i].LowestPriceCents > filtered[j].LowestPriceCents
            }
            return filtered[i].ID < filtered[j].ID
        })
    default: // SortRating
        sort.Slice(filtered, func(i, j int) bool {
            ri, rj := ratings[filtered[i].ID], ratings[filtered[j].ID]
            if ri != rj {
                return ri > rj
            }
            return filtered[i].ID < filtered[j].ID
        })
    }

    total := len(filtered)
    start := (opts.Page - 1) * opts.PageSize
    if start >= total {
        return []HotelSummary{}, total
    }
    end := start + opts.PageSize
    if end > total {
        end = total
    }
    return filtered[start:end], total
}

// hasAvailableRoom reports whether at least one room type has a unit
// free and, when guests is non-zero, sleeps that many people.
func hasAvailableRoom(types []RoomTypeSummary, guests uint32) bool {
    for _, rt := range types {
        if rt.Available < 1 {
            continue
        }
        if guests > 0 && rt.CapacityPerRoom < guests {
            continue
        }
        return true
    }
    return false
}
