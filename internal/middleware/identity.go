package middleware

// identity.go resolves the caller through the authorization gate and keeps
// the resolved user on the Echo context for handlers and later middleware.

import (
    "context"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/online-class-gate/internal/auth"
    "github.com/iliyamo/online-class-gate/internal/model"
)

const userKey = "user"

// gateTimeout bounds the user lookup behind every authenticated request.
const gateTimeout = 5 * time.Second

// Authenticate resolves the caller through the gate and stores it for
// RequireRole and handlers.  Failures are returned as auth.ErrUnauthenticated
// or an internal error and rendered by ErrorHandler.
func Authenticate(g *auth.Gate) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            ctx, cancel := context.WithTimeout(c.Request().Context(), gateTimeout)
            defer cancel()

            u, err := g.Authorize(ctx, c.Request())
            if err != nil {
                return err
            }
            SetCurrentUser(c, u)
            return next(c)
        }
    }
}

// SetCurrentUser stores u as the caller of the request.
func SetCurrentUser(c echo.Context, u model.User) {
    c.Set(userKey, u)
}

// CurrentUser returns the user stored by Authenticate.
func CurrentUser(c echo.Context) (model.User, bool) {
    u, ok := c.Get(userKey).(model.User)
    return u, ok
}
