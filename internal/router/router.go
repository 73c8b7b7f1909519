package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/online-class-gate/internal/auth"
	"github.com/iliyamo/online-class-gate/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/online-class-gate/internal/middleware" // import middleware for authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: the liveness and readiness probes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	// Liveness: the process is up.
	e.GET("/healthz", handler.Health)
	// Readiness: the database answers.
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers session and password recovery routes.  Everything
// under /v1/auth is public and rate limited per client IP; /v1/users/me
// requires a session.
func RegisterAuth(e *echo.Echo, gate *auth.Gate, a *handler.AuthHandler, r *handler.RecoveryHandler, limiter *middleware.RateLimiter) {
	g := e.Group("/v1/auth")
	session := limiter.Session()
	g.POST("/register", a.Register, session)
	g.POST("/login", a.Login, session)
	// Logout only clears the cookie, so it needs no session.
	g.POST("/logout", a.Logout, session)

	// One bucket for all recovery endpoints.
	pw := g.Group("/password", limiter.Recovery())
	pw.POST("/forgot", r.Forgot)
	pw.POST("/reset", r.Reset)
	pw.POST("/cancel", r.Cancel)

	e.GET("/v1/users/me", a.Me, middleware.Authenticate(gate))
}
