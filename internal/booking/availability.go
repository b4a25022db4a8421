package booking

import (
    "context"
    "time"
)

// Overlaps reports whether the half-open intervals [a1, a2) and
// [b1, b2) share at least one night.  A checkout day does not overlap
// a same-day check-in.
func Overlaps(a1, a2, b1, b2 time.Time) bool {
    return a1.Before(b2) && a2.After(b1)
}

// Nights returns the number of chargeable nights between check-in and
// check-out, rounding partial days up and never returning less than 1.
func Nights(checkIn, checkOut time.Time) int {
    const day = 24 * time.Hour
    d := checkOut.Sub(checkIn)
    n := int((d + day - 1) / day)
    if n < 1 {
        n = 1
    }
    return n
}

// Subtract clamps totalInventory minus activeQuantity at zero.  The
// ledger invariant keeps active quantity at or below inventory, but a
// corrupted row must not surface as a huge unsigned count.
func Subtract(totalInventory, activeQuantity uint32) uint32 {
    if activeQuantity >= totalInventory {
        return 0
    }
    return totalInventory - activeQuantity
}

// Available computes the remaining unit count of a room type for the
// half-open interval [checkIn, checkOut).  It reads outside any
// transaction, so the result is display-grade: a booking attempt must
// re-validate inside CreateIntent's transaction.
func (s *Service) Available(ctx context.Context, roomTypeID uint64, checkIn, checkOut time.Time) (uint32, error) {
    if !checkIn.Before(checkOut) {
        return 0, ErrInvalidDateRange
    }
    rt, err := s.store.RoomTypeByID(ctx, roomTypeID)
    if err != nil {
        return 0, err
    }
    active, err := s.store.ActiveQuantity(ctx, roomTypeID, checkIn, checkOut, s.now())
    if err != nil {
        return 0, err
    }
    return Subtract(rt.TotalInventory, active), nil
}
