package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dynamic-seat-booking/internal/config"
	"github.com/iliyamo/dynamic-seat-booking/internal/database"
	"github.com/iliyamo/dynamic-seat-booking/internal/engine"
	"github.com/iliyamo/dynamic-seat-booking/internal/handler"
	"github.com/iliyamo/dynamic-seat-booking/internal/queue"
	"github.com/iliyamo/dynamic-seat-booking/internal/repository"
	"github.com/iliyamo/dynamic-seat-booking/internal/router"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()
	cfg := config.Load()

	// The store handle is opened here, passed down explicitly and
	// closed at shutdown; no component reads connection state from
	// package globals.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	store := repository.NewStore(db)
	eng := engine.New(engine.NewSQLStore(store))

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; response cache and rate limiting disabled")
	}

	// Consume booking.created events in the background; the consumer
	// reconnects on its own and never stops the server.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e, handler.NewSeatHandler(eng), handler.NewBookingHandler(eng), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
