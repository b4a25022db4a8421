package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/hotel-room-reservation/internal/config"
    "github.com/iliyamo/hotel-room-reservation/internal/handler"
    "github.com/iliyamo/hotel-room-reservation/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Used by load balancers and monitoring to verify the service is up.
    e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated browse endpoints: hotel
// search, hotel detail and per-room-type availability.  These routes
// carry the rate limiter and, for search, the Redis response cache.
// rdb may be nil, in which case both middlewares pass through.
func RegisterPublic(e *echo.Echo, s *handler.SearchHandler, rdb *redis.Client) {
    limiter := middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb)
    cache := middleware.NewSearchCache(config.LoadCacheConfig(), rdb)

    e.GET("/v1/hotels/search", s.SearchHotels, limiter, cache)
    e.GET("/v1/hotels/:id", s.GetHotel, limiter)
    e.GET("/v1/room-types/:id/availability", s.RoomTypeAvailability, limiter)
}

// RegisterBookings registers the reservation protocol endpoints.  The
// write endpoints accept guests, so authentication is optional there;
// a presented token must still be valid.  Listing past bookings only
// makes sense for a known user and therefore requires a token.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, jwtSecret string) {
    g := e.Group("/v1/bookings")
    g.Use(middleware.OptionalJWTAuth(jwtSecret))
    g.POST("/intent", b.CreateIntent)
    g.POST("/:id/confirm", b.Confirm)
    g.DELETE("/:id", b.Cancel)

    mine := e.Group("/v1/my-bookings")
    mine.Use(middleware.JWTAuth(jwtSecret))
    mine.Use(middleware.RequireRole("CUSTOMER", "MANAGER"))
    mine.GET("", b.MyBookings)
    mine.GET("/:id", b.MyBooking)
}
