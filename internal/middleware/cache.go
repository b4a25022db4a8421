package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "fmt"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/hotel-room-reservation/internal/config"
)

// bodyWriter captures the response body while forwarding it to the
// client, so successful search payloads can be stored after the fact.
type bodyWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (bw *bodyWriter) WriteHeader(code int) { bw.status = code; bw.ResponseWriter.WriteHeader(code) }

func (bw *bodyWriter) Write(b []byte) (int, error) {
    if bw.limit <= 0 || bw.size+int64(len(b)) <= bw.limit {
        bw.buf.Write(b)
    }
    bw.size += int64(len(b))
    return bw.ResponseWriter.Write(b)
}

// NewSearchCache caches successful GET responses of availability-style
// endpoints in Redis for a short TTL.  Search results are explicitly
// best-effort snapshots (every reservation re-validates capacity in a
// transaction), so serving a result that is up to TTL seconds old is
// within the consistency budget.  Non-GET methods and non-200
// responses are never cached, and a missing Redis client disables the
// middleware entirely.
func NewSearchCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKey(cfg.Prefix, c)

            if body, err := rdb.Get(ctx, key).Bytes(); err == nil && len(body) > 0 {
                c.Response().Header().Set("X-Cache", "HIT")
                return c.JSONBlob(http.StatusOK, body)
            }

            bw := &bodyWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
            c.Response().Writer = bw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }

            if bw.status == http.StatusOK && bw.buf.Len() > 0 && (cfg.MaxBodyBytes <= 0 || bw.size <= int64(cfg.MaxBodyBytes)) {
                // Detached context: the client response is already sent.
                _ = rdb.SetEx(context.Background(), key, bw.buf.Bytes(), cfg.TTL).Err()
            }
            return nil
        }
    }
}

// cacheKey hashes route + raw query so date ranges, paging and sort
// orders each get their own entry.
func cacheKey(prefix string, c echo.Context) string {
    tail := strings.Join([]string{c.Path(), c.Request().URL.RawQuery}, "?")
    sum := sha1.Sum([]byte(tail))
    return fmt.Sprintf("%s:%x", prefix, sum[:])
}
