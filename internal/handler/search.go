package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-room-reservation/internal/booking"
    "github.com/iliyamo/hotel-room-reservation/internal/repository"
    "github.com/iliyamo/hotel-room-reservation/internal/search"
)

// AvailabilityService answers display-grade availability questions
// outside of any reservation transaction.
type AvailabilityService interface {
    Available(ctx context.Context, roomTypeID uint64, checkIn, checkOut time.Time) (uint32, error)
}

// SearchHandler serves the public browse surface: hotel search, hotel
// detail and per-room-type availability.  All availability figures are
// snapshots; the reservation flow re-validates under row locks.
type SearchHandler struct {
    HotelRepo *repository.HotelRepo
    Svc       AvailabilityService
}

// NewSearchHandler constructs a SearchHandler.
func NewSearchHandler(hotelRepo *repository.HotelRepo, svc AvailabilityService) *SearchHandler {
    if hotelRepo == nil {
        panic("nil hotel repository passed to NewSearchHandler")
    }
    return &SearchHandler{HotelRepo: hotelRepo, Svc: svc}
}

// SearchHotels handles GET /v1/hotels/search.  Supported query
// parameters: query (substring over name, city, address), check_in and
// check_out (YYYY-MM-DD, defaulting to tonight), guests, sort_by
// (rating, price_low, price_high), page and limit.  Hotels without at
// least one available room type for the interval are excluded.
func (h *SearchHandler) SearchHotels(c echo.Context) error {
    checkIn, checkOut, err := searchDates(c.QueryParam("check_in"), c.QueryParam("check_out"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    opts := search.Options{SortBy: c.QueryParam("sort_by")}
    if v := c.QueryParam("guests"); v != "" {
        n, err := strconv.ParseUint(v, 10, 32)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "guests must be a positive integer"})
        }
        opts.Guests = uint32(n)
    }
    if v := c.QueryParam("page"); v != "" {
        if n, err := strconv.Atoi(v); err == nil {
            opts.Page = n
        }
    }
    if v := c.QueryParam("limit"); v != "" {
        if n, err := strconv.Atoi(v); err == nil {
            opts.PageSize = n
        }
    }

    rows, err := h.HotelRepo.SearchRows(c.Request().Context(), c.QueryParam("query"), checkIn, checkOut, time.Now().UTC())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    hotels, total := search.Aggregate(rows, opts)
    page, limit := opts.Page, opts.PageSize
    if page < 1 {
        page = 1
    }
    if limit < 1 {
        limit = 12
    }
    return c.JSON(http.StatusOK, echo.Map{
        "data": hotels,
        "meta": echo.Map{"total": total, "page": page, "limit": limit},
    })
}

// GetHotel handles GET /v1/hotels/:id.  It returns the hotel together
// with every room type and its availability for the requested interval
// (defaulting to tonight).  Room types are listed even when sold out so
// clients can render them as unavailable.
func (h *SearchHandler) GetHotel(c echo.Context) error {
    hotelID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || hotelID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hotel id"})
    }
    checkIn, checkOut, err := searchDates(c.QueryParam("check_in"), c.QueryParam("check_out"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    ctx := c.Request().Context()
    hotel, err := h.HotelRepo.GetByID(ctx, hotelID)
    if errors.Is(err, repository.ErrHotelNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "hotel not found"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    rows, err := h.HotelRepo.RoomRowsByHotel(ctx, hotelID, checkIn, checkOut, time.Now().UTC())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    roomTypes := make([]search.RoomTypeSummary, 0, len(rows))
    for _, row := range rows {
        roomTypes = append(roomTypes, search.RoomTypeSummary{
            ID:                 row.RoomTypeID,
            Name:               row.RoomTypeName,
            PricePerNightCents: row.PricePerNightCents,
            CapacityPerRoom:    row.CapacityPerRoom,
            Available:          booking.Subtract(row.TotalInventory, row.ActiveQuantity),
        })
    }
    return c.JSON(http.StatusOK, echo.Map{
        "id":         hotel.ID,
        "name":       hotel.Name,
        "city":       hotel.City,
        "address":    hotel.Address,
        "rating":     float64(hotel.Rating) / 100,
        "check_in":   checkIn.Format(dateLayout),
        "check_out":  checkOut.Format(dateLayout),
        "room_types": roomTypes,
    })
}

// RoomTypeAvailability handles GET /v1/room-types/:id/availability.
func (h *SearchHandler) RoomTypeAvailability(c echo.Context) error {
    roomTypeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || roomTypeID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room type id"})
    }
    checkIn, checkOut, err := searchDates(c.QueryParam("check_in"), c.QueryParam("check_out"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    available, err := h.Svc.Available(c.Request().Context(), roomTypeID, checkIn, checkOut)
    if errors.Is(err, booking.ErrRoomTypeNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "room type not found"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "room_type_id": roomTypeID,
        "check_in":     checkIn.Format(dateLayout),
        "check_out":    checkOut.Format(dateLayout),
        "available":    available,
    })
}

// searchDates parses the optional check_in and check_out parameters,
// defaulting to a one night stay starting today (UTC).
func searchDates(in, out string) (time.Time, time.Time, error) {
    today := time.Now().UTC().Truncate(24 * time.Hour)
    checkIn, checkOut := today, today.AddDate(0, 0, 1)
    var err error
    if in != "" {
        checkIn, err = time.ParseInLocation(dateLayout, in, time.UTC)
        if err != nil {
            return time.Time{}, time.Time{}, errors.New("check_in must be formatted YYYY-MM-DD")
        }
        checkOut = checkIn.AddDate(0, 0, 1)
    }
    if out != "" {
        checkOut, err = time.ParseInLocation(dateLayout, out, time.UTC)
        if err != nil {
            return time.Time{}, time.Time{}, errors.New("check_out must be formatted YYYY-MM-DD")
        }
    }
    if !checkIn.Before(checkOut) {
        return time.Time{}, time.Time{}, errors.New("check_out must be after check_in")
    }
    return checkIn, checkOut, nil
}
