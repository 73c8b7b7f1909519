package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/online-class-gate/internal/auth"
)

var (
    errInvalidCredentials = echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
    errInvalidBody        = echo.NewHTTPError(http.StatusBadRequest, "invalid body")
    // errNoUser is returned by handlers mounted without Authenticate.
    errNoUser = auth.ErrUnauthenticated
)

// bindAndValidate decodes the request into dst and runs the registered
// validator over it.
func bindAndValidate(c echo.Context, dst interface{}) error {
    if err := c.Bind(dst); err != nil {
        return errInvalidBody
    }
    return c.Validate(dst)
}
