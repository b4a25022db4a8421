package main // Entry point package

import (
    "log"  // Logging library
    "time" // hold TTL arithmetic

    "github.com/joho/godotenv"    // optional .env loading for local development
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/iliyamo/hotel-room-reservation/internal/booking"
    "github.com/iliyamo/hotel-room-reservation/internal/config"
    "github.com/iliyamo/hotel-room-reservation/internal/database"
    "github.com/iliyamo/hotel-room-reservation/internal/handler"
    "github.com/iliyamo/hotel-room-reservation/internal/queue"
    "github.com/iliyamo/hotel-room-reservation/internal/repository"
    "github.com/iliyamo/hotel-room-reservation/internal/router"
)

func main() {
    // .env is a convenience for local development; absence is fine.
    _ = godotenv.Load()

    cfg := config.Load() // Load environment config

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer func() { _ = db.Close() }()

    ledger := repository.NewLedger(db)
    bookingRepo := repository.NewBookingRepo(db)
    hotelRepo := repository.NewHotelRepo(db)
    svc := booking.NewService(ledger, time.Duration(cfg.HoldTTLMin)*time.Minute)

    // Redis backs the rate limiter and the search cache; nil disables both.
    rdb := config.NewRedisClient()

    // Consume booking.confirmed events in the background for the audit log.
    go func() { _ = queue.StartBookingConsumer() }()

    e := echo.New() // Create Echo instance
    router.RegisterRoutes(e)
    router.RegisterPublic(e, handler.NewSearchHandler(hotelRepo, svc), rdb)
    router.RegisterBookings(e, handler.NewBookingHandler(svc, bookingRepo, hotelRepo), cfg.JWTSecret)

    addr := ":" + cfg.Port                                // Address string with port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

    if err := e.Start(addr); err != nil { // Start HTTP server
        log.Fatal(err) // Log and exit if server fails
    }
}
