package middleware

import (
    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
)

const (
    RequestIDHeader = echo.HeaderXRequestID

    loggerKey = "logger"
)

// RequestID assigns every request an id, reusing a caller-supplied
// X-Request-ID, and stores a logger carrying it.
func RequestID(base *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id := c.Request().Header.Get(RequestIDHeader)
            if id == "" || len(id) > 128 {
                id = uuid.NewString()
            }
            c.Set(loggerKey, base.With(zap.String("request_id", id)))
            c.Response().Header().Set(RequestIDHeader, id)
            return next(c)
        }
    }
}

// Logger returns the request-scoped logger, or a no-op logger when RequestID
// is not installed.
func Logger(c echo.Context) *zap.Logger {
    if l, ok := c.Get(loggerKey).(*zap.Logger); ok {
        return l
    }
    return zap.NewNop()
}
