// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/dynamic-seat-booking/internal/config"
	"github.com/iliyamo/dynamic-seat-booking/internal/handler"
	"github.com/iliyamo/dynamic-seat-booking/internal/middleware"
)

// RegisterRoutes wires the full API surface.  Read routes sit behind
// the Redis response cache and the rate limiter; the booking write
// path is rate limited but never cached, and the administrative price
// update bypasses both.
func RegisterRoutes(e *echo.Echo, seats *handler.SeatHandler, bookings *handler.BookingHandler, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	reads := e.Group("/v1", limiter, cache)
	reads.GET("/seats", seats.ListSeats)
	reads.GET("/seats/:id", seats.GetSeat)
	reads.GET("/seats/:id/price", seats.PreviewPrice)

	// Booking lookups are not cached: a customer who just booked
	// should see their booking immediately.
	rest := e.Group("/v1", limiter)
	rest.GET("/bookings", bookings.FindBookings)
	rest.POST("/bookings", bookings.CreateBooking)

	e.PUT("/v1/seats/:id/prices", seats.UpdatePrices)
}
