package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dynamic-seat-booking/internal/engine"
	"github.com/iliyamo/dynamic-seat-booking/internal/model"
	"github.com/iliyamo/dynamic-seat-booking/internal/pricing"
	"github.com/iliyamo/dynamic-seat-booking/internal/queue"
	queue_publisher "github.com/iliyamo/dynamic-seat-booking/internal/service"
)

// BookingHandler exposes the transactional booking path and the
// booking lookup.  The engine owns all invariants; this layer parses
// requests, maps typed failures to HTTP statuses and publishes the
// booking.created event after a successful commit.
type BookingHandler struct {
	Engine *engine.Engine
}

// NewBookingHandler constructs a BookingHandler around the engine.
func NewBookingHandler(eng *engine.Engine) *BookingHandler {
	if eng == nil {
		panic("nil engine passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: eng}
}

// bookingView is the JSON shape of a booking.
type bookingView struct {
	ID              uint64            `json:"id"`
	CustomerName    string            `json:"customer_name"`
	PhoneNumber     string            `json:"phone_number"`
	Status          string            `json:"status"`
	TotalPriceCents uint32            `json:"total_price_cents"`
	Seats           []bookingSeatView `json:"seats"`
	CreatedAt       string            `json:"created_at"`
}

type bookingSeatView struct {
	SeatID     uint64 `json:"seat_id"`
	PriceCents uint32 `json:"price_cents"`
}

func toBookingView(b *model.Booking) bookingView {
	seats := make([]bookingSeatView, 0, len(b.Seats))
	for _, s := range b.Seats {
		seats = append(seats, bookingSeatView{SeatID: s.SeatID, PriceCents: s.PriceCents})
	}
	return bookingView{
		ID:              b.ID,
		CustomerName:    b.Customer.Name,
		PhoneNumber:     b.Customer.PhoneNumber,
		Status:          b.Status,
		TotalPriceCents: b.TotalPriceCents,
		Seats:           seats,
		CreatedAt:       b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateBooking handles POST /v1/bookings.  The request body carries
// the seat ids and the customer's name and phone number.  The whole
// request succeeds or fails as a unit; conflict responses list every
// unavailable seat so the client can re-select precisely.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var body struct {
		SeatIDs     []uint64 `json:"seat_ids"`
		Name        string   `json:"name"`
		PhoneNumber string   `json:"phone_number"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Name == "" || body.PhoneNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and phone_number are required"})
	}

	booking, err := h.Engine.Book(c.Request().Context(), body.SeatIDs, model.Customer{
		Name:        body.Name,
		PhoneNumber: body.PhoneNumber,
	})
	if err != nil {
		return bookingFailure(c, err)
	}

	// Fire the domain event outside the request path; the booking is
	// committed whether or not the broker is reachable.
	go func(b model.Booking) {
		seats := make([]queue.BookedSeat, 0, len(b.Seats))
		for _, s := range b.Seats {
			seats = append(seats, queue.BookedSeat{SeatID: s.SeatID, PriceCents: s.PriceCents})
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishBookingCreated(ctx, queue.BookingCreatedEvent{
			BookingID:       b.ID,
			CustomerName:    b.Customer.Name,
			PhoneNumber:     b.Customer.PhoneNumber,
			Seats:           seats,
			TotalPriceCents: b.TotalPriceCents,
			CreatedAt:       b.CreatedAt.UTC().Format(time.RFC3339),
		})
	}(*booking)

	return c.JSON(http.StatusCreated, toBookingView(booking))
}

// FindBookings handles GET /v1/bookings?identifier=...  The identifier
// matches the customer name or phone number exactly.
func (h *BookingHandler) FindBookings(c echo.Context) error {
	identifier := c.QueryParam("identifier")
	bookings, err := h.Engine.FindBookings(c.Request().Context(), identifier)
	if err != nil {
		if errors.Is(err, engine.ErrMissingIdentifier) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier is required"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	items := make([]bookingView, 0, len(bookings))
	for i := range bookings {
		items = append(items, toBookingView(&bookings[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// bookingFailure translates engine booking failures into responses.
// Every recoverable kind keeps its offending identifiers so the client
// can render a precise message.
func bookingFailure(c echo.Context, err error) error {
	var unknown *engine.UnknownSeatError
	if errors.As(err, &unknown) {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error":    "unknown seats",
			"seat_ids": unknown.SeatIDs,
		})
	}
	var unavailable *engine.SeatsUnavailableError
	if errors.As(err, &unavailable) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":    "seats already booked",
			"seat_ids": unavailable.SeatIDs,
		})
	}
	var empty *engine.EmptyClassError
	if errors.As(err, &empty) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":      "seat class has no seats",
			"seat_class": empty.SeatClass,
		})
	}
	if errors.Is(err, pricing.ErrUnpriceable) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "seat has no price bounds"})
	}
	if errors.Is(err, engine.ErrNoSeatsRequested) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}
	if errors.Is(err, engine.ErrStoreUnavailable) {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable, retry the request"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create booking"})
}
