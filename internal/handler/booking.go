package handler

import (
    "context"
    "database/sql"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-room-reservation/internal/booking"
    "github.com/iliyamo/hotel-room-reservation/internal/middleware"
    "github.com/iliyamo/hotel-room-reservation/internal/model"
    "github.com/iliyamo/hotel-room-reservation/internal/queue"
    "github.com/iliyamo/hotel-room-reservation/internal/repository"
    queue_publisher "github.com/iliyamo/hotel-room-reservation/internal/service"
)

// dateLayout is the wire format for check-in and check-out dates.
const dateLayout = "2006-01-02"

// ReservationService is the slice of the booking service the handlers
// need.  Tests swap in a stub; production wires *booking.Service.
type ReservationService interface {
    CreateIntent(ctx context.Context, req booking.IntentRequest) (*booking.Intent, error)
    Confirm(ctx context.Context, bookingID uint64, paymentIntentID string, guests []model.GuestDetail) (*model.Booking, bool, error)
    Cancel(ctx context.Context, bookingID uint64) (*model.Booking, error)
}

// BookingHandler exposes the reservation protocol over HTTP: creating
// payment intents, confirming or cancelling them and listing a
// customer's bookings.  Identity is optional on the write endpoints so
// guests can book; listing requires an authenticated user.
type BookingHandler struct {
    Svc         ReservationService
    BookingRepo *repository.BookingRepo
    HotelRepo   *repository.HotelRepo

    // publish delivers confirmation events to the broker.  Tests
    // substitute a capture function.
    publish func(ctx context.Context, evt queue.BookingConfirmedEvent) error
}

// NewBookingHandler constructs a BookingHandler.  Svc must be non-nil;
// the repositories may be nil only in tests that never reach them.
func NewBookingHandler(svc ReservationService, bookingRepo *repository.BookingRepo, hotelRepo *repository.HotelRepo) *BookingHandler {
    if svc == nil {
        panic("nil service passed to NewBookingHandler")
    }
    return &BookingHandler{
        Svc:         svc,
        BookingRepo: bookingRepo,
        HotelRepo:   hotelRepo,
        publish:     queue_publisher.PublishBookingConfirmed,
    }
}

// intentBody is the JSON request for POST /v1/bookings/intent.
type intentBody struct {
    HotelID   uint64 `json:"hotel_id"`
    RoomLines []struct {
        RoomTypeID uint64 `json:"room_type_id"`
        Quantity   uint32 `json:"quantity"`
    } `json:"room_lines"`
    CheckIn      string      `json:"check_in"`
    CheckOut     string      `json:"check_out"`
    Guests       uint32      `json:"guests"`
    PaymentMode  string      `json:"payment_mode"`
    GuestDetails []guestBody `json:"guest_details"`
}

type guestBody struct {
    Name  string  `json:"name"`
    Phone string  `json:"phone"`
    Email *string `json:"email"`
}

func (g guestBody) toModel() model.GuestDetail {
    return model.GuestDetail{Name: g.Name, Phone: g.Phone, Email: g.Email}
}

// CreateIntent handles POST /v1/bookings/intent.  It creates the
// booking with its hold (or confirms immediately for PAY_AT_HOTEL) and
// returns the payment intent.  Responds 201 on success.
func (h *BookingHandler) CreateIntent(c echo.Context) error {
    var body intentBody
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    checkIn, checkOut, err := parseDates(body.CheckIn, body.CheckOut)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    req := booking.IntentRequest{
        HotelID:     body.HotelID,
        CheckIn:     checkIn,
        CheckOut:    checkOut,
        Guests:      body.Guests,
        PaymentMode: body.PaymentMode,
        UserID:      middleware.CurrentUserID(c),
    }
    for _, line := range body.RoomLines {
        req.RoomLines = append(req.RoomLines, booking.RoomLineRequest{RoomTypeID: line.RoomTypeID, Quantity: line.Quantity})
    }
    for _, g := range body.GuestDetails {
        req.GuestDetails = append(req.GuestDetails, g.toModel())
    }

    intent, err := h.Svc.CreateIntent(c.Request().Context(), req)
    if err != nil {
        return writeBookingError(c, err)
    }
    if intent.Status == model.StatusConfirmed {
        mode := body.PaymentMode
        if mode == "" {
            mode = model.PaymentModeOnline
        }
        h.publishConfirmed(intent.BookingID, req.UserID, body.HotelID,
            body.CheckIn, body.CheckOut, mode, nil, intent.PaymentIntentID, intent.TotalPriceCents)
    }
    return c.JSON(http.StatusCreated, intent)
}

// Confirm handles POST /v1/bookings/:id/confirm.  It finalises payment
// on a pending booking and attaches the travelling guests.  Confirming
// an already confirmed booking succeeds without side effects.
func (h *BookingHandler) Confirm(c echo.Context) error {
    bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || bookingID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var body struct {
        PaymentIntentID string      `json:"payment_intent_id"`
        GuestDetails    []guestBody `json:"guest_details"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.PaymentIntentID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_intent_id is required"})
    }
    guests := make([]model.GuestDetail, 0, len(body.GuestDetails))
    for _, g := range body.GuestDetails {
        guests = append(guests, g.toModel())
    }

    b, transitioned, err := h.Svc.Confirm(c.Request().Context(), bookingID, body.PaymentIntentID, guests)
    if err != nil {
        return writeBookingError(c, err)
    }
    // The event fires once per booking, on the actual transition into
    // CONFIRMED.  Idempotent retries succeed silently.
    if transitioned {
        ref := ""
        if b.TransactionID != nil {
            ref = *b.TransactionID
        }
        h.publishConfirmed(b.ID, b.UserID, b.HotelID,
            b.CheckIn.UTC().Format(dateLayout), b.CheckOut.UTC().Format(dateLayout),
            model.PaymentModeOnline, b.PaymentModeID, ref, b.TotalPriceCents)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "booking_id": b.ID,
        "status":     b.Status,
    })
}

// Cancel handles DELETE /v1/bookings/:id.  The booking row is retained
// with CANCELLED status and its capacity becomes available again.
func (h *BookingHandler) Cancel(c echo.Context) error {
    bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || bookingID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    b, err := h.Svc.Cancel(c.Request().Context(), bookingID)
    if err != nil {
        return writeBookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "booking_id": b.ID,
        "status":     b.Status,
    })
}

// MyBookings handles GET /v1/my-bookings for an authenticated user.
func (h *BookingHandler) MyBookings(c echo.Context) error {
    userID := middleware.CurrentUserID(c)
    if userID == nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    details, err := h.BookingRepo.ListByUser(c.Request().Context(), *userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": details})
}

// MyBooking handles GET /v1/my-bookings/:id for an authenticated user.
func (h *BookingHandler) MyBooking(c echo.Context) error {
    userID := middleware.CurrentUserID(c)
    if userID == nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || bookingID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    det, err := h.BookingRepo.GetByIDForUser(c.Request().Context(), bookingID, *userID)
    if errors.Is(err, sql.ErrNoRows) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
    }
    if errors.Is(err, repository.ErrForbidden) {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, det)
}

// publishConfirmed fires a booking.confirmed event in the background.
// The request must not wait on, or fail because of, the broker.  mode
// is the fallback name; when modeID is set the stored payment mode row
// wins, so the event reflects what the booking actually recorded.
func (h *BookingHandler) publishConfirmed(bookingID uint64, userID *uint64, hotelID uint64, checkIn, checkOut, mode string, modeID *uint64, transactionID string, totalCents int64) {
    evt := queue.BookingConfirmedEvent{
        BookingID:       bookingID,
        UserID:          userID,
        HotelID:         hotelID,
        CheckIn:         checkIn,
        CheckOut:        checkOut,
        PaymentMode:     mode,
        TransactionID:   transactionID,
        TotalPriceCents: totalCents,
        ConfirmedAt:     time.Now().UTC().Format(time.RFC3339),
    }
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        if h.HotelRepo != nil {
            if hotel, err := h.HotelRepo.GetByID(ctx, hotelID); err == nil {
                evt.HotelName = hotel.Name
            }
        }
        if h.BookingRepo != nil {
            if names, err := h.BookingRepo.RoomTypeNames(ctx, bookingID); err == nil {
                evt.RoomTypeNames = names
            }
            if modeID != nil {
                if pm, err := h.BookingRepo.PaymentModeByID(ctx, *modeID); err == nil {
                    evt.PaymentMode = pm.Name
                }
            }
        }
        _ = h.publish(ctx, evt)
    }()
}

// writeBookingError maps service errors onto HTTP responses.  Validation
// problems are 400, unknown resources 404 and exhausted lock conflicts
// 503 so clients know a retry may succeed.
func writeBookingError(c echo.Context, err error) error {
    var notAvail *booking.RoomNotAvailableError
    if errors.As(err, &notAvail) {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error":     "room not available",
            "room_type": notAvail.RoomTypeName,
            "requested": notAvail.Requested,
            "available": notAvail.Available,
        })
    }
    var capErr *booking.CapacityExceededError
    if errors.As(err, &capErr) {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error":      "guest count exceeds room capacity",
            "max_guests": capErr.MaxGuests,
        })
    }
    switch {
    case errors.Is(err, booking.ErrMissingFields):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing required fields"})
    case errors.Is(err, booking.ErrInvalidDateRange):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must be after check_in"})
    case errors.Is(err, booking.ErrGuestDetailsRequired):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "guest details are required for pay at hotel"})
    case errors.Is(err, booking.ErrInvalidBookingStatus):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking is not awaiting payment"})
    case errors.Is(err, booking.ErrBookingExpired):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking hold has expired"})
    case errors.Is(err, booking.ErrRoomTypeNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "room type not found"})
    case errors.Is(err, booking.ErrBookingNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
    case errors.Is(err, booking.ErrTxConflict):
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "please retry, the room is in high demand"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}

// parseDates parses and validates the check-in and check-out strings.
func parseDates(in, out string) (time.Time, time.Time, error) {
    if in == "" || out == "" {
        return time.Time{}, time.Time{}, errors.New("check_in and check_out are required")
    }
    checkIn, err := time.ParseInLocation(dateLayout, in, time.UTC)
    if err != nil {
        return time.Time{}, time.Time{}, errors.New("check_in must be formatted YYYY-MM-DD")
    }
    checkOut, err := time.ParseInLocation(dateLayout, out, time.UTC)
    if err != nil {
        return time.Time{}, time.Time{}, errors.New("check_out must be formatted YYYY-MM-DD")
    }
    return checkIn, checkOut, nil
}
