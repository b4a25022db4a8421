package booking

import (
    "context"
    "crypto/rand"
    "encoding/hex"
    "errors"
    "sort"
    "time"

    "github.com/iliyamo/hotel-room-reservation/internal/model"
)

// DefaultHoldTTL is how long an ONLINE payment hold reserves capacity
// before it silently expires.
const DefaultHoldTTL = 15 * time.Minute

// maxTxAttempts bounds the conflict retry loop so two intents fighting
// over the same room type cannot livelock.
const maxTxAttempts = 3

// PayAtHotelIntentID is the sentinel payment reference returned for
// bookings that are confirmed directly at intent time.
const PayAtHotelIntentID = "pay_at_hotel"

// Service implements the reservation protocol on top of a Store.  It
// owns no transport concerns: handlers translate its errors into HTTP
// responses and publish events on confirmed results.
type Service struct {
    store   Store
    holdTTL time.Duration
    now     func() time.Time
}

// NewService returns a Service with the given hold TTL.  A zero or
// negative ttl falls back to DefaultHoldTTL.
func NewService(store Store, ttl time.Duration) *Service {
    if store == nil {
        panic("nil store passed to NewService")
    }
    if ttl <= 0 {
        ttl = DefaultHoldTTL
    }
    return &Service{store: store, holdTTL: ttl, now: time.Now}
}

// RoomLineRequest asks for a quantity of one room type.
type RoomLineRequest struct {
    RoomTypeID uint64
    Quantity   uint32
}

// IntentRequest carries everything needed to create a booking intent.
// UserID is nil for guest flows.  GuestDetails are only consulted for
// PAY_AT_HOTEL, where at least one complete entry is mandatory.
type IntentRequest struct {
    HotelID      uint64
    RoomLines    []RoomLineRequest
    CheckIn      time.Time
    CheckOut     time.Time
    Guests       uint32
    PaymentMode  string
    UserID       *uint64
    GuestDetails []model.GuestDetail
}

// Intent is the result of a successful CreateIntent call.  ExpiresAt
// is nil for PAY_AT_HOTEL bookings, which are confirmed immediately.
type Intent struct {
    BookingID       uint64     `json:"booking_id"`
    Status          string     `json:"status"`
    PaymentIntentID string     `json:"payment_intent_id"`
    ClientSecret    string     `json:"client_secret,omitempty"`
    TotalPriceCents int64      `json:"total_price_cents"`
    Currency        string     `json:"currency"`
    ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// CreateIntent validates the request, re-checks capacity for every
// requested room type inside one transaction and writes the booking
// with all of its lines atomically.  ONLINE bookings start as
// PENDING_PAYMENT with a time-boxed hold; PAY_AT_HOTEL bookings are
// confirmed on the spot and require a complete guest detail up front.
func (s *Service) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
    if req.HotelID == 0 || len(req.RoomLines) == 0 || req.CheckIn.IsZero() || req.CheckOut.IsZero() || req.Guests == 0 {
        return nil, ErrMissingFields
    }
    for _, line := range req.RoomLines {
        if line.RoomTypeID == 0 || line.Quantity == 0 {
            return nil, ErrMissingFields
        }
    }
    if !req.CheckIn.Before(req.CheckOut) {
        return nil, ErrInvalidDateRange
    }

    mode := req.PaymentMode
    if mode == "" {
        mode = model.PaymentModeOnline
    }
    if mode == model.PaymentModePayAtHotel && !hasCompleteGuest(req.GuestDetails) {
        return nil, ErrGuestDetailsRequired
    }

    // Merge duplicate room-type lines so a repeated type is validated
    // against its combined quantity; checking each line in isolation
    // would let a basket claim the same remaining unit twice.  Then
    // lock in ascending ID order so two baskets touching the same
    // types never acquire their row locks in opposite order.
    byType := make(map[uint64]uint32, len(req.RoomLines))
    for _, line := range req.RoomLines {
        byType[line.RoomTypeID] += line.Quantity
    }
    lines := make([]RoomLineRequest, 0, len(byType))
    for id, qty := range byType {
        lines = append(lines, RoomLineRequest{RoomTypeID: id, Quantity: qty})
    }
    sort.Slice(lines, func(i, j int) bool { return lines[i].RoomTypeID < lines[j].RoomTypeID })

    var out *Intent
    err := s.inTxWithRetry(ctx, func(tx Tx) error {
        now := s.now()
        nights := int64(Nights(req.CheckIn, req.CheckOut))

        var totalCapacity uint32
        var totalPrice int64
        finalLines := make([]model.BookingRoomLine, 0, len(lines))
        for _, line := range lines {
            rt, err := tx.RoomTypeForUpdate(ctx, line.RoomTypeID)
            if err != nil {
                return err
            }
            if rt.HotelID != req.HotelID {
                return ErrRoomTypeNotFound
            }
            active, err := tx.ActiveQuantity(ctx, rt.ID, req.CheckIn, req.CheckOut, now)
            if err != nil {
                return err
            }
            available := Subtract(rt.TotalInventory, active)
            if available < line.Quantity {
                return &RoomNotAvailableError{RoomTypeName: rt.Name, Requested: line.Quantity, Available: available}
            }
            totalCapacity += rt.CapacityPerRoom * line.Quantity
            totalPrice += rt.PricePerNightCents * int64(line.Quantity) * nights
            finalLines = append(finalLines, model.BookingRoomLine{
                RoomTypeID:         rt.ID,
                Quantity:           line.Quantity,
                PricePerNightCents: rt.PricePerNightCents,
            })
        }
        if req.Guests > totalCapacity {
            return &CapacityExceededError{MaxGuests: totalCapacity}
        }

        modeID, err := tx.PaymentModeIDByName(ctx, mode)
        if err != nil {
            return err
        }

        b := &model.Booking{
            UserID:          req.UserID,
            HotelID:         req.HotelID,
            PaymentModeID:   modeID,
            CheckIn:         req.CheckIn,
            CheckOut:        req.CheckOut,
            TotalPriceCents: totalPrice,
        }
        intent := &Intent{TotalPriceCents: totalPrice, Currency: "INR"}
        if mode == model.PaymentModePayAtHotel {
            b.Status = model.StatusConfirmed
            ref := PayAtHotelIntentID
            b.TransactionID = &ref
            intent.PaymentIntentID = PayAtHotelIntentID
        } else {
            // Mock payment intent; a real gateway call would happen here
            // and can fail independently of the reservation.
            token, err := randomToken(12)
            if err != nil {
                return err
            }
            expires := now.Add(s.holdTTL)
            b.Status = model.StatusPendingPayment
            b.ExpiresAt = &expires
            intent.PaymentIntentID = "pi_" + token
            intent.ClientSecret = "secret_" + token
            intent.ExpiresAt = &expires
        }
        if err := tx.InsertBooking(ctx, b); err != nil {
            return err
        }
        for i := range finalLines {
            finalLines[i].BookingID = b.ID
        }
        if err := tx.InsertRoomLines(ctx, finalLines); err != nil {
            return err
        }
        if mode == model.PaymentModePayAtHotel {
            if err := tx.InsertGuestDetails(ctx, b.ID, req.GuestDetails); err != nil {
                return err
            }
        }
        intent.BookingID = b.ID
        intent.Status = b.Status
        out = intent
        return nil
    })
    if err != nil {
        return nil, err
    }
    return out, nil
}

// Confirm finalises payment on a PENDING_PAYMENT booking: it attaches
// the supplied guest details, clears the hold and records the payment
// reference.  Confirming an already CONFIRMED booking is an idempotent
// success that inserts nothing.  The returned bool reports whether this
// call performed the transition into CONFIRMED, so callers emit their
// confirmation side effects exactly once per booking.  Capacity is not
// re-checked – the hold reserved it at intent time.
func (s *Service) Confirm(ctx context.Context, bookingID uint64, paymentIntentID string, guests []model.GuestDetail) (*model.Booking, bool, error) {
    if bookingID == 0 {
        return nil, false, ErrMissingFields
    }
    var out *model.Booking
    var transitioned bool
    err := s.inTxWithRetry(ctx, func(tx Tx) error {
        b, err := tx.BookingForUpdate(ctx, bookingID)
        if err != nil {
            return err
        }
        if b.Status == model.StatusConfirmed {
            out = b // confirm is safe to retry
            transitioned = false
            return nil
        }
        if b.Status != model.StatusPendingPayment {
            return ErrInvalidBookingStatus
        }
        if b.ExpiresAt != nil && b.ExpiresAt.Before(s.now()) {
            return ErrBookingExpired
        }
        if len(guests) > 0 {
            if err := tx.InsertGuestDetails(ctx, b.ID, guests); err != nil {
                return err
            }
        }
        if err := tx.MarkConfirmed(ctx, b.ID, paymentIntentID); err != nil {
            return err
        }
        b.Status = model.StatusConfirmed
        b.ExpiresAt = nil
        b.TransactionID = &paymentIntentID
        out = b
        transitioned = true
        return nil
    })
    if err != nil {
        return nil, false, err
    }
    return out, transitioned, nil
}

// Cancel transitions a booking to CANCELLED.  The row is kept for
// audit history; the availability predicate stops counting it, which
// is what frees the capacity.
func (s *Service) Cancel(ctx context.Context, bookingID uint64) (*model.Booking, error) {
    if bookingID == 0 {
        return nil, ErrMissingFields
    }
    var out *model.Booking
    err := s.inTxWithRetry(ctx, func(tx Tx) error {
        b, err := tx.BookingForUpdate(ctx, bookingID)
        if err != nil {
            return err
        }
        if err := tx.MarkCancelled(ctx, b.ID); err != nil {
            return err
        }
        b.Status = model.StatusCancelled
        out = b
        return nil
    })
    if err != nil {
        return nil, err
    }
    return out, nil
}

// inTxWithRetry replays the transaction body on ErrTxConflict up to
// maxTxAttempts times.  Every other error aborts immediately.
func (s *Service) inTxWithRetry(ctx context.Context, fn func(tx Tx) error) error {
    var err error
    for attempt := 0; attempt < maxTxAttempts; attempt++ {
        err = s.store.InTx(ctx, fn)
        if !errors.Is(err, ErrTxConflict) {
            return err
        }
    }
    return err
}

func hasCompleteGuest(guests []model.GuestDetail) bool {
    for _, g := range guests {
        if g.IsComplete() {
            return true
        }
    }
    return false
}

// randomToken returns n random bytes as a hex string, used for the
// mock payment intent and client secret pair.
func randomToken(n int) (string, error) {
    b := make([]byte, n)
    if _, err := rand.Read(b); err != nil {
        return "", err
    }
    return hex.EncodeToString(b), nil
}
