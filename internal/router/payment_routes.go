package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-class-gate/internal/auth"
	"github.com/iliyamo/online-class-gate/internal/handler"
	"github.com/iliyamo/online-class-gate/internal/middleware"
	"github.com/iliyamo/online-class-gate/internal/model"
)

// RegisterPayments registers the payment routes.  Middleware is attached per
// route because the group mixes public, student and admin endpoints.
func RegisterPayments(e *echo.Echo, gate *auth.Gate, p *handler.PaymentHandler) {
	authn := middleware.Authenticate(gate)
	student := middleware.RequireRole(model.RoleStudent)
	admin := middleware.RequireRole(model.RoleAdmin)

	g := e.Group("/v1/payments")
	// Public: anyone holding a reference can check it.
	g.GET("/verify/:reference", p.Verify)
	g.POST("", p.Submit, authn, student)
	g.GET("", p.List, authn, admin)
	g.PATCH("/:id/approve", p.Approve, authn, admin)
	g.PATCH("/:id/reject", p.Reject, authn, admin)
}
