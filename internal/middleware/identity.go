package middleware

// identity.go defines helper functions shared across middleware files. It
// provides user identity extraction from the context values stored by the
// JWT middleware. When no user is authenticated, requests are treated as
// guest traffic.

import (
    "fmt"

    "github.com/labstack/echo/v4"
)

// CurrentUserID returns the authenticated user's ID or nil for guest
// requests.  JWT numeric claims decode as float64, so both numeric and
// string subjects are accepted.
func CurrentUserID(c echo.Context) *uint64 {
    v := c.Get("user_id")
    if v == nil {
        return nil
    }
    switch t := v.(type) {
    case float64:
        if t > 0 {
            id := uint64(t)
            return &id
        }
    case uint64:
        if t > 0 {
            id := t
            return &id
        }
    case string:
        var id uint64
        if _, err := fmt.Sscanf(t, "%d", &id); err == nil && id > 0 {
            return &id
        }
    }
    return nil
}

// rateKeyUserID renders the identity for rate-limit keys; guests share
// the "anon" bucket per IP.
func rateKeyUserID(c echo.Context) string {
    if id := CurrentUserID(c); id != nil {
        return fmt.Sprintf("%d", *id)
    }
    return "anon"
}
