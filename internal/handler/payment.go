package handler

import (
    "context"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/online-class-gate/internal/middleware"
    "github.com/iliyamo/online-class-gate/internal/model"
)

// PaymentService is implemented by *service.PaymentWorkflow.
type PaymentService interface {
    Submit(ctx context.Context, studentID, courseID, reference, receiptURL string) (model.Payment, error)
    Approve(ctx context.Context, paymentID, actorID string) (model.Payment, error)
    Reject(ctx context.Context, paymentID, actorID string) (model.Payment, error)
    LookupByReference(ctx context.Context, reference string) (model.PaymentVerification, error)
    List(ctx context.Context, status model.PaymentStatus, limit int) ([]model.Payment, error)
}

// PaymentHandler exposes submission, review and public verification.
type PaymentHandler struct {
    Payments PaymentService
}

func NewPaymentHandler(p PaymentService) *PaymentHandler {
    return &PaymentHandler{Payments: p}
}

type submitPaymentReq struct {
    CourseID        string `json:"course_id" validate:"required,max=36"`
    ReferenceNumber string `json:"reference_number" validate:"required,payment_ref"`
    ReceiptURL      string `json:"receipt_url" validate:"required,url,max=512"`
}

type listPaymentsReq struct {
    Status string `query:"status" validate:"payment_status"`
    Limit  int    `query:"limit" validate:"gte=0,lte=200"`
}

// Submit records the caller's payment receipt.  POST /v1/payments (STUDENT)
func (h *PaymentHandler) Submit(c echo.Context) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return errNoUser
    }
    var req submitPaymentReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    p, err := h.Payments.Submit(ctx, u.ID, req.CourseID, req.ReferenceNumber, req.ReceiptURL)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, p)
}

// List returns payments, newest first, optionally filtered by ?status=.
// GET /v1/payments (ADMIN)
func (h *PaymentHandler) List(c echo.Context) error {
    var req listPaymentsReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    list, err := h.Payments.List(ctx, model.PaymentStatus(strings.ToUpper(req.Status)), req.Limit)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"items": list, "count": len(list)})
}

// Approve: PATCH /v1/payments/:id/approve (ADMIN)
func (h *PaymentHandler) Approve(c echo.Context) error {
    return h.review(c, h.Payments.Approve)
}

// Reject: PATCH /v1/payments/:id/reject (ADMIN)
func (h *PaymentHandler) Reject(c echo.Context) error {
    return h.review(c, h.Payments.Reject)
}

func (h *PaymentHandler) review(c echo.Context, op func(ctx context.Context, paymentID, actorID string) (model.Payment, error)) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return errNoUser
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    p, err := op(ctx, strings.TrimSpace(c.Param("id")), u.ID)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, p)
}

// Verify looks a payment up by its reference number.  It is public so a
// receipt can be checked without an account.  GET /v1/payments/verify/:reference
func (h *PaymentHandler) Verify(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    v, err := h.Payments.LookupByReference(ctx, c.Param("reference"))
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, v)
}
