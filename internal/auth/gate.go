// Package auth resolves the caller of a request and enforces role
// requirements.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/iliyamo/online-class-gate/internal/model"
	"github.com/iliyamo/online-class-gate/internal/repository"
)

var (
	// ErrUnauthenticated covers a missing, malformed, expired or forged
	// credential and a credential naming an unknown user.  The cases are
	// deliberately indistinguishable to the caller.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the caller is known but lacks a required role.
	ErrForbidden = errors.New("forbidden")
)

// TokenVerifier decodes a session token into a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserFinder loads users by id.  It must return repository.ErrUserNotFound
// for unknown ids.
type UserFinder interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// Gate authenticates requests.  It holds no mutable state.
type Gate struct {
	tokens     TokenVerifier
	users      UserFinder
	cookieName string
}

// NewGate returns a Gate reading the credential from cookieName, falling
// back to an "Authorization: Bearer" header.
func NewGate(tokens TokenVerifier, users UserFinder, cookieName string) *Gate {
	if cookieName == "" {
		cookieName = "token"
	}
	return &Gate{tokens: tokens, users: users, cookieName: cookieName}
}

// CookieName is the name of the session cookie.
func (g *Gate) CookieName() string { return g.cookieName }

// Authorize resolves the user behind r.  With a non-empty roles list the
// user's role must be one of them.  Storage failures are returned wrapped
// and are neither ErrUnauthenticated nor ErrForbidden.
func (g *Gate) Authorize(ctx context.Context, r *http.Request, roles ...model.Role) (model.User, error) {
	raw := g.credential(r)
	if raw == "" {
		return model.User{}, ErrUnauthenticated
	}
	userID, err := g.tokens.Verify(raw)
	if err != nil {
		return model.User{}, ErrUnauthenticated
	}
	u, err := g.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, ErrUnauthenticated
	}
	if err != nil {
		return model.User{}, fmt.Errorf("resolve user: %w", err)
	}
	if !u.HasRole(roles...) {
		return model.User{}, ErrForbidden
	}
	return u, nil
}

// credential returns the raw token from the session cookie or the bearer
// header, or "" when neither is present.
func (g *Gate) credential(r *http.Request) string {
	if c, err := r.Cookie(g.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
