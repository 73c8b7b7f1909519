package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
)

// RequestLogger logs one line per request once the response is written.
// Server errors log at error level, client errors at warn.
func RequestLogger() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // Render now so the logged status is the one the client sees.
                c.Error(err)
            }

            req := c.Request()
            status := c.Response().Status
            fields := []zap.Field{
                zap.String("method", req.Method),
                zap.String("path", req.URL.Path),
                zap.String("route", c.Path()),
                zap.String("ip", c.RealIP()),
                zap.String("user_agent", req.UserAgent()),
                zap.Int("status_code", status),
                zap.Duration("latency", time.Since(start)),
            }
            if u, ok := CurrentUser(c); ok {
                fields = append(fields, zap.String("user_id", u.ID))
            }

            log := Logger(c)
            switch {
            case status >= 500:
                log.Error("request completed with server error", fields...)
            case status >= 400:
                log.Warn("request completed with client error", fields...)
            default:
                log.Info("request completed", fields...)
            }
            return nil
        }
    }
}
