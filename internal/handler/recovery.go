package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/online-class-gate/internal/middleware"
)

// RecoveryService is implemented by *service.Recovery.
type RecoveryService interface {
    RequestReset(ctx context.Context, email string) error
    ResetPassword(ctx context.Context, email, code, newPassword string) error
    CancelReset(ctx context.Context, email string) error
}

// RecoveryHandler serves the password reset endpoints under /v1/auth/password.
type RecoveryHandler struct {
    Recovery RecoveryService
}

func NewRecoveryHandler(r RecoveryService) *RecoveryHandler {
    return &RecoveryHandler{Recovery: r}
}

type emailReq struct {
    Email string `json:"email" validate:"required,email,max=255"`
}

type resetReq struct {
    Email       string `json:"email" validate:"required,email,max=255"`
    Code        string `json:"code" validate:"required,numeric,len=6"`
    NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// Forgot always answers 202 so the response does not reveal whether the
// email belongs to an account.  Failures are logged.
func (h *RecoveryHandler) Forgot(c echo.Context) error {
    var req emailReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Recovery.RequestReset(ctx, req.Email); err != nil {
        middleware.Logger(c).Error("password reset request failed", zap.Error(err))
    }
    return c.JSON(http.StatusAccepted, echo.Map{"message": "if the account exists a reset code has been sent"})
}

// Reset trades a code for a new password.  Unknown, expired and wrong codes
// all answer 404.
func (h *RecoveryHandler) Reset(c echo.Context) error {
    var req resetReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Recovery.ResetPassword(ctx, req.Email, req.Code, req.NewPassword); err != nil {
        return err
    }
    return c.NoContent(http.StatusNoContent)
}

// Cancel withdraws an outstanding code.  Idempotent.
func (h *RecoveryHandler) Cancel(c echo.Context) error {
    var req emailReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Recovery.CancelReset(ctx, req.Email); err != nil {
        return err
    }
    return c.NoContent(http.StatusNoContent)
}
