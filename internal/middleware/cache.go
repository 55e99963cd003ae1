package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// captureWriter tees the response body so a successful reply can be stored
// after it has been sent to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	cw.buf.Write(b)
	return cw.ResponseWriter.Write(b)
}

// CacheGET caches successful GET responses in Redis for ttl.  The key is
// derived from route and query string, so inventory reads for busy on-sales
// are served without touching MySQL.  With a nil client the middleware is a
// pass-through.  Only status 200 bodies are stored; everything cached here
// is public, buyer-anonymous data.
func CacheGET(rdb *redis.Client, ttl time.Duration) echo.MiddlewareFunc {
	if rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
			key := fmt.Sprintf("respcache:%x", sum)

			ctx := c.Request().Context()
			if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
				c.Response().Header().Set("X-Cache", "HIT")
				c.Response().WriteHeader(http.StatusOK)
				_, werr := c.Response().Write(body)
				return werr
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && cw.buf.Len() > 0 {
				// Detached context: the store must not be cancelled by the
				// request finishing.
				_ = rdb.SetEx(context.Background(), key, cw.buf.Bytes(), ttl).Err()
			}
			return nil
		}
	}
}
