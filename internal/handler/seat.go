package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dynamic-seat-booking/internal/engine"
	"github.com/iliyamo/dynamic-seat-booking/internal/model"
	"github.com/iliyamo/dynamic-seat-booking/internal/pricing"
	"github.com/iliyamo/dynamic-seat-booking/internal/repository"
)

// SeatHandler exposes the seat inventory read paths and the
// administrative price-bound update.  All pricing and occupancy logic
// lives in the engine; handlers only parse requests and translate
// typed engine failures into HTTP responses.
type SeatHandler struct {
	Engine *engine.Engine
}

// NewSeatHandler constructs a SeatHandler around the engine.
func NewSeatHandler(eng *engine.Engine) *SeatHandler {
	if eng == nil {
		panic("nil engine passed to NewSeatHandler")
	}
	return &SeatHandler{Engine: eng}
}

// seatView is the JSON shape of a seat.  Absent price bounds are
// omitted rather than rendered as zero.
type seatView struct {
	ID               uint64  `json:"id"`
	SeatNumber       string  `json:"seat_number"`
	SeatClass        string  `json:"seat_class"`
	MinPriceCents    *uint32 `json:"min_price_cents,omitempty"`
	NormalPriceCents *uint32 `json:"normal_price_cents,omitempty"`
	MaxPriceCents    *uint32 `json:"max_price_cents,omitempty"`
}

func toSeatView(s *model.Seat) seatView {
	return seatView{
		ID:               s.ID,
		SeatNumber:       s.SeatNumber,
		SeatClass:        s.SeatClass,
		MinPriceCents:    s.MinPriceCents,
		NormalPriceCents: s.NormalPriceCents,
		MaxPriceCents:    s.MaxPriceCents,
	}
}

// ListSeats handles GET /v1/seats.  It returns the full inventory.
func (h *SeatHandler) ListSeats(c echo.Context) error {
	seats, err := h.Engine.ListSeats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}
	items := make([]seatView, 0, len(seats))
	for i := range seats {
		items = append(items, toSeatView(&seats[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetSeat handles GET /v1/seats/:id.  It returns the seat together
// with the price it would currently be charged at.  The price is a
// preview: the booking transaction re-derives it on its own snapshot.
func (h *SeatHandler) GetSeat(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	seat, price, err := h.Engine.SeatWithPrice(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return priceFailure(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"seat":        toSeatView(seat),
		"price_cents": price,
	})
}

// PreviewPrice handles GET /v1/seats/:id/price.  It returns only the
// current price for the seat.
func (h *SeatHandler) PreviewPrice(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	price, err := h.Engine.PreviewPrice(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return priceFailure(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"price_cents": price})
}

// UpdatePrices handles PUT /v1/seats/:id/prices.  It replaces the
// seat's price bounds; committed bookings keep their captured prices.
func (h *SeatHandler) UpdatePrices(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	var body struct {
		MinPriceCents    *uint32 `json:"min_price_cents"`
		NormalPriceCents *uint32 `json:"normal_price_cents"`
		MaxPriceCents    *uint32 `json:"max_price_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.MinPriceCents == nil && body.NormalPriceCents == nil && body.MaxPriceCents == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one price bound is required"})
	}
	err = h.Engine.UpdateSeatPrices(c.Request().Context(), id, model.PriceBounds{
		MinPriceCents:    body.MinPriceCents,
		NormalPriceCents: body.NormalPriceCents,
		MaxPriceCents:    body.MaxPriceCents,
	})
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update prices"})
	}
	return c.NoContent(http.StatusNoContent)
}

// priceFailure maps pricing configuration errors to responses.  Both
// are inventory misconfiguration, reported rather than defaulted.
func priceFailure(c echo.Context, err error) error {
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
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute price"})
}
