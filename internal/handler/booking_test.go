package handler

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/hotel-room-reservation/internal/booking"
    "github.com/iliyamo/hotel-room-reservation/internal/model"
    "github.com/iliyamo/hotel-room-reservation/internal/queue"
)

// stubService cans the reservation service responses so handler tests
// exercise only binding, validation and error translation.
type stubService struct {
    intent       *booking.Intent
    intentErr    error
    confirmed    *model.Booking
    transitioned bool
    confirmErr   error
    cancelled    *model.Booking
    cancelErr    error

    gotIntent  *booking.IntentRequest
    gotConfirm struct {
        bookingID       uint64
        paymentIntentID string
        guests          []model.GuestDetail
    }
}

func (s *stubService) CreateIntent(ctx context.Context, req booking.IntentRequest) (*booking.Intent, error) {
    s.gotIntent = &req
    return s.intent, s.intentErr
}

func (s *stubService) Confirm(ctx context.Context, bookingID uint64, paymentIntentID string, guests []model.GuestDetail) (*model.Booking, bool, error) {
    s.gotConfirm.bookingID = bookingID
    s.gotConfirm.paymentIntentID = paymentIntentID
    s.gotConfirm.guests = guests
    return s.confirmed, s.transitioned, s.confirmErr
}

func (s *stubService) Cancel(ctx context.Context, bookingID uint64) (*model.Booking, error) {
    return s.cancelled, s.cancelErr
}

func doJSON(h echo.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
    e := echo.New()
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    names := make([]string, 0, len(params))
    values := make([]string, 0, len(params))
    for k, v := range params {
        names = append(names, k)
        values = append(values, v)
    }
    c.SetParamNames(names...)
    c.SetParamValues(values...)
    _ = h(c)
    return rec
}

func TestCreateIntentHandler(t *testing.T) {
    expires := time.Date(2026, 9, 10, 12, 15, 0, 0, time.UTC)
    svc := &stubService{intent: &booking.Intent{
        BookingID:       7,
        Status:          model.StatusPendingPayment,
        PaymentIntentID: "pi_abc",
        ClientSecret:    "secret_abc",
        TotalPriceCents: 2000000,
        Currency:        "INR",
        ExpiresAt:       &expires,
    }}
    h := NewBookingHandler(svc, nil, nil)

    body := `{"hotel_id":10,"room_lines":[{"room_type_id":1,"quantity":2}],
              "check_in":"2026-09-10","check_out":"2026-09-12","guests":4}`
    rec := doJSON(h.CreateIntent, http.MethodPost, "/v1/bookings/intent", body, nil)

    require.Equal(t, http.StatusCreated, rec.Code)
    var got map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
    assert.Equal(t, float64(7), got["booking_id"])
    assert.Equal(t, "pi_abc", got["payment_intent_id"])
    assert.Equal(t, "INR", got["currency"])

    require.NotNil(t, svc.gotIntent)
    assert.Equal(t, uint64(10), svc.gotIntent.HotelID)
    assert.Equal(t, uint32(4), svc.gotIntent.Guests)
    require.Len(t, svc.gotIntent.RoomLines, 1)
    assert.Equal(t, uint32(2), svc.gotIntent.RoomLines[0].Quantity)
    assert.Nil(t, svc.gotIntent.UserID) // no token, guest flow
}

func TestCreateIntentHandlerBadDates(t *testing.T) {
    h := NewBookingHandler(&stubService{}, nil, nil)

    body := `{"hotel_id":10,"room_lines":[{"room_type_id":1,"quantity":1}],
              "check_in":"10-09-2026","check_out":"2026-09-12","guests":2}`
    rec := doJSON(h.CreateIntent, http.MethodPost, "/v1/bookings/intent", body, nil)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateIntentHandlerErrorMapping(t *testing.T) {
    cases := []struct {
        name string
        err  error
        code int
    }{
        {"missing fields", booking.ErrMissingFields, http.StatusBadRequest},
        {"bad date range", booking.ErrInvalidDateRange, http.StatusBadRequest},
        {"guest details required", booking.ErrGuestDetailsRequired, http.StatusBadRequest},
        {"not available", &booking.RoomNotAvailableError{RoomTypeName: "Deluxe", Requested: 2, Available: 1}, http.StatusBadRequest},
        {"capacity exceeded", &booking.CapacityExceededError{MaxGuests: 4}, http.StatusBadRequest},
        {"room type missing", booking.ErrRoomTypeNotFound, http.StatusNotFound},
        {"lock conflicts exhausted", booking.ErrTxConflict, http.StatusServiceUnavailable},
    }
    body := `{"hotel_id":10,"room_lines":[{"room_type_id":1,"quantity":1}],
              "check_in":"2026-09-10","check_out":"2026-09-12","guests":2}`
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            h := NewBookingHandler(&stubService{intentErr: tc.err}, nil, nil)
            rec := doJSON(h.CreateIntent, http.MethodPost, "/v1/bookings/intent", body, nil)
            assert.Equal(t, tc.code, rec.Code)
        })
    }
}

func TestCreateIntentHandlerNotAvailableBody(t *testing.T) {
    svc := &stubService{intentErr: &booking.RoomNotAvailableError{RoomTypeName: "Deluxe", Requested: 2, Available: 1}}
    h := NewBookingHandler(svc, nil, nil)

    body := `{"hotel_id":10,"room_lines":[{"room_type_id":1,"quantity":2}],
              "check_in":"2026-09-10","check_out":"2026-09-12","guests":2}`
    rec := doJSON(h.CreateIntent, http.MethodPost, "/v1/bookings/intent", body, nil)

    require.Equal(t, http.StatusBadRequest, rec.Code)
    var got map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
    assert.Equal(t, "Deluxe", got["room_type"])
    assert.Equal(t, float64(2), got["requested"])
    assert.Equal(t, float64(1), got["available"])
}

func TestConfirmHandler(t *testing.T) {
    ref := "pi_abc"
    svc := &stubService{transitioned: true, confirmed: &model.Booking{
        ID:            7,
        HotelID:       10,
        Status:        model.StatusConfirmed,
        CheckIn:       time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
        CheckOut:      time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
        TransactionID: &ref,
    }}
    h := NewBookingHandler(svc, nil, nil)

    body := `{"payment_intent_id":"pi_abc","guest_details":[{"name":"Asha Rao","phone":"9876543210"}]}`
    rec := doJSON(h.Confirm, http.MethodPost, "/v1/bookings/7/confirm", body, map[string]string{"id": "7"})

    require.Equal(t, http.StatusOK, rec.Code)
    var got map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
    assert.Equal(t, model.StatusConfirmed, got["status"])

    assert.Equal(t, uint64(7), svc.gotConfirm.bookingID)
    assert.Equal(t, "pi_abc", svc.gotConfirm.paymentIntentID)
    require.Len(t, svc.gotConfirm.guests, 1)
    assert.Equal(t, "Asha Rao", svc.gotConfirm.guests[0].Name)
}

func TestConfirmHandlerPublishesOncePerTransition(t *testing.T) {
    mkBooking := func() *model.Booking {
        ref := "pi_abc"
        return &model.Booking{
            ID:            7,
            HotelID:       10,
            Status:        model.StatusConfirmed,
            CheckIn:       time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
            CheckOut:      time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
            TransactionID: &ref,
        }
    }
    body := `{"payment_intent_id":"pi_abc"}`
    params := map[string]string{"id": "7"}

    t.Run("transition publishes", func(t *testing.T) {
        h := NewBookingHandler(&stubService{transitioned: true, confirmed: mkBooking()}, nil, nil)
        published := make(chan queue.BookingConfirmedEvent, 1)
        h.publish = func(ctx context.Context, evt queue.BookingConfirmedEvent) error {
            published <- evt
            return nil
        }

        rec := doJSON(h.Confirm, http.MethodPost, "/v1/bookings/7/confirm", body, params)
        require.Equal(t, http.StatusOK, rec.Code)

        select {
        case evt := <-published:
            assert.Equal(t, uint64(7), evt.BookingID)
            assert.Equal(t, "pi_abc", evt.TransactionID)
        case <-time.After(time.Second):
            t.Fatal("no event published for a confirmed transition")
        }
    })

    t.Run("idempotent retry stays silent", func(t *testing.T) {
        h := NewBookingHandler(&stubService{transitioned: false, confirmed: mkBooking()}, nil, nil)
        published := make(chan queue.BookingConfirmedEvent, 1)
        h.publish = func(ctx context.Context, evt queue.BookingConfirmedEvent) error {
            published <- evt
            return nil
        }

        rec := doJSON(h.Confirm, http.MethodPost, "/v1/bookings/7/confirm", body, params)
        require.Equal(t, http.StatusOK, rec.Code)

        select {
        case <-published:
            t.Fatal("retry of an already confirmed booking must not publish again")
        case <-time.After(100 * time.Millisecond):
        }
    })
}

func TestConfirmHandlerValidation(t *testing.T) {
    h := NewBookingHandler(&stubService{}, nil, nil)

    rec := doJSON(h.Confirm, http.MethodPost, "/v1/bookings/abc/confirm", `{}`, map[string]string{"id": "abc"})
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = doJSON(h.Confirm, http.MethodPost, "/v1/bookings/7/confirm", `{}`, map[string]string{"id": "7"})
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmHandlerErrorMapping(t *testing.T) {
    cases := []struct {
        name string
        err  error
        code int
    }{
        {"unknown booking", booking.ErrBookingNotFound, http.StatusNotFound},
        {"hold lapsed", booking.ErrBookingExpired, http.StatusBadRequest},
        {"already cancelled", booking.ErrInvalidBookingStatus, http.StatusBadRequest},
    }
    body := `{"payment_intent_id":"pi_abc"}`
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            h := NewBookingHandler(&stubService{confirmErr: tc.err}, nil, nil)
            rec := doJSON(h.Confirm, http.MethodPost, "/v1/bookings/7/confirm", body, map[string]string{"id": "7"})
            assert.Equal(t, tc.code, rec.Code)
        })
    }
}

func TestCancelHandler(t *testing.T) {
    svc := &stubService{cancelled: &model.Booking{ID: 7, Status: model.StatusCancelled}}
    h := NewBookingHandler(svc, nil, nil)

    rec := doJSON(h.Cancel, http.MethodDelete, "/v1/bookings/7", "", map[string]string{"id": "7"})
    require.Equal(t, http.StatusOK, rec.Code)
    var got map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
    assert.Equal(t, model.StatusCancelled, got["status"])

    h = NewBookingHandler(&stubService{cancelErr: booking.ErrBookingNotFound}, nil, nil)
    rec = doJSON(h.Cancel, http.MethodDelete, "/v1/bookings/9", "", map[string]string{"id": "9"})
    assert.Equal(t, http.StatusNotFound, rec.Code)
}
