package middleware

import (
    "errors"
    "net/http"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/online-class-gate/internal/auth"
    "github.com/iliyamo/online-class-gate/internal/repository"
    "github.com/iliyamo/online-class-gate/internal/resetcode"
    "github.com/iliyamo/online-class-gate/internal/service"
)

// ErrorHandler renders errors returned by handlers and middleware as
// {"error": "..."} bodies.  Anything it does not recognise is a 500 whose
// cause is logged, never sent.
func ErrorHandler() echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        status, body := classify(err)
        if status == http.StatusInternalServerError {
            req := c.Request()
            Logger(c).Error("internal error",
                zap.String("method", req.Method),
                zap.String("path", req.URL.Path),
                zap.Error(err))
        }

        var werr error
        if c.Request().Method == http.MethodHead {
            werr = c.NoContent(status)
        } else {
            werr = c.JSON(status, body)
        }
        if werr != nil {
            Logger(c).Warn("write error response failed", zap.Error(werr))
        }
    }
}

func classify(err error) (int, echo.Map) {
    var he *echo.HTTPError
    var verrs validator.ValidationErrors
    switch {
    case errors.As(err, &he):
        msg := he.Message
        if s, ok := msg.(string); ok {
            return he.Code, echo.Map{"error": s}
        }
        if he.Code >= 500 {
            return he.Code, echo.Map{"error": "internal error"}
        }
        return he.Code, echo.Map{"error": http.StatusText(he.Code)}
    case errors.As(err, &verrs):
        fields := make(map[string]string, len(verrs))
        for _, fe := range verrs {
            fields[fe.Field()] = fe.Tag()
        }
        return http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fields}
    case errors.Is(err, auth.ErrUnauthenticated):
        return http.StatusUnauthorized, echo.Map{"error": "unauthenticated"}
    case errors.Is(err, auth.ErrForbidden):
        return http.StatusForbidden, echo.Map{"error": "forbidden"}
    case errors.Is(err, repository.ErrNotFoundOrAlreadyProcessed):
        return http.StatusNotFound, echo.Map{"error": "payment not found or already processed"}
    case errors.Is(err, repository.ErrPaymentNotFound):
        return http.StatusNotFound, echo.Map{"error": "payment not found"}
    case errors.Is(err, resetcode.ErrCodeNotFound),
        errors.Is(err, resetcode.ErrCodeExpired),
        errors.Is(err, resetcode.ErrCodeMismatch):
        // One message for all three so callers cannot tell them apart.
        return http.StatusNotFound, echo.Map{"error": "invalid or expired reset code"}
    case errors.Is(err, repository.ErrDuplicateReference):
        return http.StatusConflict, echo.Map{"error": "reference number already submitted"}
    case errors.Is(err, repository.ErrEmailExists):
        return http.StatusConflict, echo.Map{"error": "email already registered"}
    case errors.Is(err, service.ErrInvalidInput):
        return http.StatusBadRequest, echo.Map{"error": err.Error()}
    default:
        return http.StatusInternalServerError, echo.Map{"error": "internal error"}
    }
}
