package middleware // middleware provides shared request processing for handlers

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/online-class-gate/internal/auth"
    "github.com/iliyamo/online-class-gate/internal/model"
)

// RequireRole restricts a route to callers holding one of roles.  It must
// run after Authenticate; a request that reaches it without a user is
// unauthenticated.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            u, ok := CurrentUser(c)
            if !ok {
                return auth.ErrUnauthenticated
            }
            if !u.HasRole(roles...) {
                return auth.ErrForbidden
            }
            return next(c)
        }
    }
}
