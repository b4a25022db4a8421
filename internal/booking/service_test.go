package booking

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/hotel-room-reservation/internal/model"
)

// memLedger is an in-memory Store used to exercise the reservation
// protocol without a database.  InTx serializes on a mutex, which is a
// faithful stand-in for the row locks the SQL ledger takes: capacity
// checks and writes inside one transaction are atomic with respect to
// every other transaction.
type memLedger struct {
    mu        sync.Mutex
    roomTypes map[uint64]*model.RoomType
    bookings  map[uint64]*model.Booking
    lines     map[uint64][]model.BookingRoomLine
    guests    map[uint64][]model.GuestDetail
    nextID    uint64
}

func newMemLedger(roomTypes ...*model.RoomType) *memLedger {
    l := &memLedger{
        roomTypes: make(map[uint64]*model.RoomType),
        bookings:  make(map[uint64]*model.Booking),
        lines:     make(map[uint64][]model.BookingRoomLine),
        guests:    make(map[uint64][]model.GuestDetail),
    }
    for _, rt := range roomTypes {
        l.roomTypes[rt.ID] = rt
    }
    return l
}

func (l *memLedger) InTx(ctx context.Context, fn func(tx Tx) error) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    return fn(&memTx{l: l})
}

func (l *memLedger) RoomTypeByID(ctx context.Context, roomTypeID uint64) (*model.RoomType, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    rt, ok := l.roomTypes[roomTypeID]
    if !ok {
        return nil, ErrRoomTypeNotFound
    }
    cp := *rt
    return &cp, nil
}

func (l *memLedger) ActiveQuantity(ctx context.Context, roomTypeID uint64, checkIn, checkOut, now time.Time) (uint32, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    return l.activeQuantity(roomTypeID, checkIn, checkOut, now), nil
}

// activeQuantity applies the same predicate as the SQL ledger: count
// lines of bookings that overlap the interval and are CONFIRMED or
// still-live PENDING_PAYMENT.
func (l *memLedger) activeQuantity(roomTypeID uint64, checkIn, checkOut, now time.Time) uint32 {
    var total uint32
    for id, b := range l.bookings {
        if !Overlaps(b.CheckIn, b.CheckOut, checkIn, checkOut) {
            continue
        }
        active := b.Status == model.StatusConfirmed ||
            (b.Status == model.StatusPendingPayment && b.ExpiresAt != nil && b.ExpiresAt.After(now))
        if !active {
            continue
        }
        for _, line := range l.lines[id] {
            if line.RoomTypeID == roomTypeID {
                total += line.Quantity
            }
        }
    }
    return total
}

type memTx struct {
    l *memLedger
}

func (t *memTx) RoomTypeForUpdate(ctx context.Context, roomTypeID uint64) (*model.RoomType, error) {
    rt, ok := t.l.roomTypes[roomTypeID]
    if !ok {
        return nil, ErrRoomTypeNotFound
    }
    cp := *rt
    return &cp, nil
}

func (t *memTx) ActiveQuantity(ctx context.Context, roomTypeID uint64, checkIn, checkOut, now time.Time) (uint32, error) {
    return t.l.activeQuantity(roomTypeID, checkIn, checkOut, now), nil
}

func (t *memTx) PaymentModeIDByName(ctx context.Context, name string) (*uint64, error) {
    return nil, nil
}

func (t *memTx) InsertBooking(ctx context.Context, b *model.Booking) error {
    t.l.nextID++
    b.ID = t.l.nextID
    cp := *b
    t.l.bookings[b.ID] = &cp
    return nil
}

func (t *memTx) InsertRoomLines(ctx context.Context, lines []model.BookingRoomLine) error {
    for _, line := range lines {
        t.l.lines[line.BookingID] = append(t.l.lines[line.BookingID], line)
    }
    return nil
}

func (t *memTx) InsertGuestDetails(ctx context.Context, bookingID uint64, guests []model.GuestDetail) error {
    t.l.guests[bookingID] = append(t.l.guests[bookingID], guests...)
    return nil
}

func (t *memTx) BookingForUpdate(ctx context.Context, bookingID uint64) (*model.Booking, error) {
    b, ok := t.l.bookings[bookingID]
    if !ok {
        return nil, ErrBookingNotFound
    }
    cp := *b
    return &cp, nil
}

func (t *memTx) MarkConfirmed(ctx context.Context, bookingID uint64, transactionID string) error {
    b, ok := t.l.bookings[bookingID]
    if !ok {
        return ErrBookingNotFound
    }
    b.Status = model.StatusConfirmed
    b.ExpiresAt = nil
    ref := transactionID
    b.TransactionID = &ref
    return nil
}

func (t *memTx) MarkCancelled(ctx context.Context, bookingID uint64) error {
    b, ok := t.l.bookings[bookingID]
    if !ok {
        return ErrBookingNotFound
    }
    b.Status = model.StatusCancelled
    return nil
}

// Fixture helpers.

func day(s string) time.Time {
    t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
    if err != nil {
        panic(err)
    }
    return t
}

func deluxe(inventory uint32) *model.RoomType {
    return &model.RoomType{
        ID:                 1,
        HotelID:            10,
        Name:               "Deluxe",
        PricePerNightCents: 500000,
        CapacityPerRoom:    2,
        TotalInventory:     inventory,
    }
}

func intentReq(quantity uint32) IntentRequest {
    return IntentRequest{
        HotelID:   10,
        RoomLines: []RoomLineRequest{{RoomTypeID: 1, Quantity: quantity}},
        CheckIn:   day("2026-09-10"),
        CheckOut:  day("2026-09-12"),
        Guests:    2,
    }
}

func TestCreateIntentValidation(t *testing.T) {
    svc := NewService(newMemLedger(deluxe(5)), 0)
    ctx := context.Background()

    cases := []struct {
        name string
        mut  func(*IntentRequest)
        want error
    }{
        {"missing hotel", func(r *IntentRequest) { r.HotelID = 0 }, ErrMissingFields},
        {"no room lines", func(r *IntentRequest) { r.RoomLines = nil }, ErrMissingFields},
        {"zero quantity", func(r *IntentRequest) { r.RoomLines[0].Quantity = 0 }, ErrMissingFields},
        {"zero room type", func(r *IntentRequest) { r.RoomLines[0].RoomTypeID = 0 }, ErrMissingFields},
        {"zero guests", func(r *IntentRequest) { r.Guests = 0 }, ErrMissingFields},
        {"no check-in", func(r *IntentRequest) { r.CheckIn = time.Time{} }, ErrMissingFields},
        {"check-out before check-in", func(r *IntentRequest) { r.CheckOut = day("2026-09-09") }, ErrInvalidDateRange},
        {"check-out equals check-in", func(r *IntentRequest) { r.CheckOut = r.CheckIn }, ErrInvalidDateRange},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            req := intentReq(1)
            tc.mut(&req)
            _, err := svc.CreateIntent(ctx, req)
            assert.ErrorIs(t, err, tc.want)
        })
    }
}

func TestCreateIntentPriceAndHold(t *testing.T) {
    ledger := newMemLedger(deluxe(5))
    svc := NewService(ledger, 0)
    base := day("2026-09-01")
    svc.now = func() time.Time { return base }

    req := intentReq(2)
    req.Guests = 4
    intent, err := svc.CreateIntent(context.Background(), req)
    require.NoError(t, err)

    // 2 rooms x 2 nights x 5000.00
    assert.Equal(t, int64(2000000), intent.TotalPriceCents)
    assert.Equal(t, model.StatusPendingPayment, intent.Status)
    assert.Equal(t, "INR", intent.Currency)
    assert.NotEmpty(t, intent.ClientSecret)
    require.NotNil(t, intent.ExpiresAt)
    assert.Equal(t, base.Add(DefaultHoldTTL), *intent.ExpiresAt)

    stored := ledger.bookings[intent.BookingID]
    require.NotNil(t, stored)
    assert.Equal(t, int64(2000000), stored.TotalPriceCents)
    require.Len(t, ledger.lines[intent.BookingID], 1)
    assert.Equal(t, int64(500000), ledger.lines[intent.BookingID][0].PricePerNightCents)
}

func TestCreateIntentMergesDuplicateLines(t *testing.T) {
    // A basket repeating a room type must be checked against the
    // combined quantity, not line by line.
    req := intentReq(1)
    req.RoomLines = []RoomLineRequest{
        {RoomTypeID: 1, Quantity: 1},
        {RoomTypeID: 1, Quantity: 1},
    }

    t.Run("combined quantity cannot oversell", func(t *testing.T) {
        svc := NewService(newMemLedger(deluxe(1)), 0)
        _, err := svc.CreateIntent(context.Background(), req)
        var notAvail *RoomNotAvailableError
        require.ErrorAs(t, err, &notAvail)
        assert.Equal(t, uint32(2), notAvail.Requested)
        assert.Equal(t, uint32(1), notAvail.Available)
    })

    t.Run("merged into one line when inventory allows", func(t *testing.T) {
        ledger := newMemLedger(deluxe(2))
        svc := NewService(ledger, 0)
        r := req
        r.Guests = 4
        intent, err := svc.CreateIntent(context.Background(), r)
        require.NoError(t, err)

        lines := ledger.lines[intent.BookingID]
        require.Len(t, lines, 1)
        assert.Equal(t, uint32(2), lines[0].Quantity)
        // 2 rooms x 2 nights x 5000.00
        assert.Equal(t, int64(2000000), intent.TotalPriceCents)
    })
}

func TestCreateIntentRoomNotAvailable(t *testing.T) {
    svc := NewService(newMemLedger(deluxe(3)), 0)
    ctx := context.Background()

    _, err := svc.CreateIntent(ctx, intentReq(3))
    require.NoError(t, err)

    _, err = svc.CreateIntent(ctx, intentReq(1))
    var notAvail *RoomNotAvailableError
    require.ErrorAs(t, err, &notAvail)
    assert.Equal(t, "Deluxe", notAvail.RoomTypeName)
    assert.Equal(t, uint32(1), notAvail.Requested)
    assert.Equal(t, uint32(0), notAvail.Available)
}

func TestCreateIntentCapacityExceeded(t *testing.T) {
    svc := NewService(newMemLedger(deluxe(5)), 0)

    req := intentReq(1) // one Deluxe sleeps 2
    req.Guests = 3
    _, err := svc.CreateIntent(context.Background(), req)
    var capErr *CapacityExceededError
    require.ErrorAs(t, err, &capErr)
    assert.Equal(t, uint32(2), capErr.MaxGuests)
}

func TestCreateIntentWrongHotel(t *testing.T) {
    svc := NewService(newMemLedger(deluxe(5)), 0)

    req := intentReq(1)
    req.HotelID = 99
    _, err := svc.CreateIntent(context.Background(), req)
    assert.ErrorIs(t, err, ErrRoomTypeNotFound)
}

func TestPayAtHotelConfirmsImmediately(t *testing.T) {
    ledger := newMemLedger(deluxe(5))
    svc := NewService(ledger, 0)

    req := intentReq(1)
    req.PaymentMode = model.PaymentModePayAtHotel
    req.GuestDetails = []model.GuestDetail{{Name: "Asha Rao", Phone: "9876543210"}}
    intent, err := svc.CreateIntent(context.Background(), req)
    require.NoError(t, err)

    assert.Equal(t, model.StatusConfirmed, intent.Status)
    assert.Equal(t, PayAtHotelIntentID, intent.PaymentIntentID)
    assert.Nil(t, intent.ExpiresAt)
    assert.Empty(t, intent.ClientSecret)
    assert.Len(t, ledger.guests[intent.BookingID], 1)

    // a redundant confirm call takes the idempotent path and reports
    // no transition, so no second confirmation event can fire
    _, transitioned, err := svc.Confirm(context.Background(), intent.BookingID, "pi_dup", nil)
    require.NoError(t, err)
    assert.False(t, transitioned)
}

func TestPayAtHotelRequiresCompleteGuest(t *testing.T) {
    svc := NewService(newMemLedger(deluxe(5)), 0)

    req := intentReq(1)
    req.PaymentMode = model.PaymentModePayAtHotel
    req.GuestDetails = []model.GuestDetail{{Name: "Asha Rao"}} // no phone
    _, err := svc.CreateIntent(context.Background(), req)
    assert.ErrorIs(t, err, ErrGuestDetailsRequired)
}

func TestConcurrentIntentsNeverOversell(t *testing.T) {
    const inventory = 5
    const attempts = 20
    ledger := newMemLedger(deluxe(inventory))
    svc := NewService(ledger, 0)

    var wg sync.WaitGroup
    errs := make([]error, attempts)
    for i := 0; i < attempts; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            _, errs[i] = svc.CreateIntent(context.Background(), intentReq(1))
        }(i)
    }
    wg.Wait()

    succeeded := 0
    for _, err := range errs {
        if err == nil {
            succeeded++
            continue
        }
        var notAvail *RoomNotAvailableError
        assert.ErrorAs(t, err, &notAvail)
    }
    assert.Equal(t, inventory, succeeded)
}

func TestAdjacentStaysShareNoNight(t *testing.T) {
    svc := NewService(newMemLedger(deluxe(1)), 0)
    ctx := context.Background()

    first := intentReq(1)
    first.CheckIn, first.CheckOut = day("2026-09-10"), day("2026-09-12")
    _, err := svc.CreateIntent(ctx, first)
    require.NoError(t, err)

    // checkout day is free for a same-day check-in
    second := intentReq(1)
    second.CheckIn, second.CheckOut = day("2026-09-12"), day("2026-09-14")
    _, err = svc.CreateIntent(ctx, second)
    assert.NoError(t, err)

    // but any shared night collides
    third := intentReq(1)
    third.CheckIn, third.CheckOut = day("2026-09-11"), day("2026-09-13")
    _, err = svc.CreateIntent(ctx, third)
    var notAvail *RoomNotAvailableError
    assert.ErrorAs(t, err, &notAvail)
}

func TestExpiredHoldReleasesCapacity(t *testing.T) {
    ledger := newMemLedger(deluxe(1))
    svc := NewService(ledger, 0)
    clock := day("2026-09-01")
    svc.now = func() time.Time { return clock }

    held, err := svc.CreateIntent(context.Background(), intentReq(1))
    require.NoError(t, err)

    // while the hold is live the room is taken
    _, err = svc.CreateIntent(context.Background(), intentReq(1))
    var notAvail *RoomNotAvailableError
    require.ErrorAs(t, err, &notAvail)

    // past the hold deadline the capacity is back without any sweeper
    clock = clock.Add(DefaultHoldTTL + time.Minute)
    _, err = svc.CreateIntent(context.Background(), intentReq(1))
    assert.NoError(t, err)

    // and the lapsed booking can no longer be confirmed
    _, _, err = svc.Confirm(context.Background(), held.BookingID, "pi_late", nil)
    assert.ErrorIs(t, err, ErrBookingExpired)
}

func TestConfirmIsIdempotent(t *testing.T) {
    ledger := newMemLedger(deluxe(5))
    svc := NewService(ledger, 0)
    ctx := context.Background()

    intent, err := svc.CreateIntent(ctx, intentReq(1))
    require.NoError(t, err)

    guests := []model.GuestDetail{{Name: "Asha Rao", Phone: "9876543210"}}
    first, transitioned, err := svc.Confirm(ctx, intent.BookingID, intent.PaymentIntentID, guests)
    require.NoError(t, err)
    assert.Equal(t, model.StatusConfirmed, first.Status)
    assert.Nil(t, first.ExpiresAt)
    assert.True(t, transitioned)

    // retrying the confirm succeeds, must not duplicate guests and
    // must not report a second transition
    second, transitioned, err := svc.Confirm(ctx, intent.BookingID, intent.PaymentIntentID, guests)
    require.NoError(t, err)
    assert.Equal(t, model.StatusConfirmed, second.Status)
    assert.False(t, transitioned)
    assert.Len(t, ledger.guests[intent.BookingID], 1)
}

func TestConfirmRejectsCancelled(t *testing.T) {
    svc := NewService(newMemLedger(deluxe(5)), 0)
    ctx := context.Background()

    intent, err := svc.CreateIntent(ctx, intentReq(1))
    require.NoError(t, err)
    _, err = svc.Cancel(ctx, intent.BookingID)
    require.NoError(t, err)

    _, _, err = svc.Confirm(ctx, intent.BookingID, intent.PaymentIntentID, nil)
    assert.ErrorIs(t, err, ErrInvalidBookingStatus)
}

func TestConfirmUnknownBooking(t *testing.T) {
    svc := NewService(newMemLedger(deluxe(5)), 0)
    _, _, err := svc.Confirm(context.Background(), 42, "pi_x", nil)
    assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCancelFreesCapacity(t *testing.T) {
    svc := NewService(newMemLedger(deluxe(1)), 0)
    ctx := context.Background()

    intent, err := svc.CreateIntent(ctx, intentReq(1))
    require.NoError(t, err)

    _, err = svc.CreateIntent(ctx, intentReq(1))
    var notAvail *RoomNotAvailableError
    require.ErrorAs(t, err, &notAvail)

    cancelled, err := svc.Cancel(ctx, intent.BookingID)
    require.NoError(t, err)
    assert.Equal(t, model.StatusCancelled, cancelled.Status)

    _, err = svc.CreateIntent(ctx, intentReq(1))
    assert.NoError(t, err)
}

// conflictStore wraps a Store and fails InTx with ErrTxConflict a fixed
// number of times before delegating.
type conflictStore struct {
    Store
    failures int
}

func (s *conflictStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
    if s.failures > 0 {
        s.failures--
        return ErrTxConflict
    }
    return s.Store.InTx(ctx, fn)
}

func TestConflictRetries(t *testing.T) {
    t.Run("recovers within budget", func(t *testing.T) {
        store := &conflictStore{Store: newMemLedger(deluxe(5)), failures: 2}
        svc := NewService(store, 0)
        _, err := svc.CreateIntent(context.Background(), intentReq(1))
        assert.NoError(t, err)
    })
    t.Run("gives up after budget", func(t *testing.T) {
        store := &conflictStore{Store: newMemLedger(deluxe(5)), failures: 10}
        svc := NewService(store, 0)
        _, err := svc.CreateIntent(context.Background(), intentReq(1))
        assert.ErrorIs(t, err, ErrTxConflict)
        assert.Equal(t, 7, store.failures)
    })
}

func TestAvailableDisplayPath(t *testing.T) {
    ledger := newMemLedger(deluxe(3))
    svc := NewService(ledger, 0)
    ctx := context.Background()

    got, err := svc.Available(ctx, 1, day("2026-09-10"), day("2026-09-12"))
    require.NoError(t, err)
    assert.Equal(t, uint32(3), got)

    _, err = svc.CreateIntent(ctx, intentReq(2))
    require.NoError(t, err)

    got, err = svc.Available(ctx, 1, day("2026-09-10"), day("2026-09-12"))
    require.NoError(t, err)
    assert.Equal(t, uint32(1), got)

    _, err = svc.Available(ctx, 7, day("2026-09-10"), day("2026-09-12"))
    assert.ErrorIs(t, err, ErrRoomTypeNotFound)

    _, err = svc.Available(ctx, 1, day("2026-09-12"), day("2026-09-12"))
    assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestMultiRoomBasketLocksInOrder(t *testing.T) {
    suite := &model.RoomType{
        ID:                 2,
        HotelID:            10,
        Name:               "Suite",
        PricePerNightCents: 900000,
        CapacityPerRoom:    4,
        TotalInventory:     2,
    }
    ledger := newMemLedger(deluxe(5), suite)
    svc := NewService(ledger, 0)

    req := IntentRequest{
        HotelID: 10,
        RoomLines: []RoomLineRequest{
            {RoomTypeID: 2, Quantity: 1},
            {RoomTypeID: 1, Quantity: 1},
        },
        CheckIn:  day("2026-09-10"),
        CheckOut: day("2026-09-11"),
        Guests:   6,
    }
    intent, err := svc.CreateIntent(context.Background(), req)
    require.NoError(t, err)

    // one night: 5000.00 + 9000.00
    assert.Equal(t, int64(1400000), intent.TotalPriceCents)
    lines := ledger.lines[intent.BookingID]
    require.Len(t, lines, 2)
    assert.Less(t, lines[0].RoomTypeID, lines[1].RoomTypeID)
}
