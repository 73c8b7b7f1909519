package handler

import (
    "context"             // provides context with cancellation for DB calls
    "errors"
    "net/http"            // HTTP status codes and primitives
    "strings"             // string manipulation utilities
    "time"                // timeouts for DB calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing
    "go.uber.org/zap"

    "github.com/iliyamo/online-class-gate/internal/middleware"
    "github.com/iliyamo/online-class-gate/internal/model"
    "github.com/iliyamo/online-class-gate/internal/repository"
    "github.com/iliyamo/online-class-gate/internal/utils" // password checks and session tokens
)

// requestTimeout bounds the storage calls made by a single request.
const requestTimeout = 5 * time.Second

// CredentialStore is what registration and login need from the users
// repository.
type CredentialStore interface {
    Create(ctx context.Context, name, email, passwordHash string, role model.Role) (model.User, error)
    GetByEmail(ctx context.Context, email string) (model.User, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
    Issue(userID string) (utils.Credential, error)
}

// AuthHandler bundles dependencies for session endpoints.
type AuthHandler struct {
    Users        CredentialStore
    Tokens       TokenIssuer
    CookieName   string
    SecureCookie bool
    BcryptCost   int
}

func NewAuthHandler(users CredentialStore, tokens TokenIssuer, cookieName string, secure bool, bcryptCost int) *AuthHandler {
    if cookieName == "" {
        cookieName = "token"
    }
    return &AuthHandler{Users: users, Tokens: tokens, CookieName: cookieName, SecureCookie: secure, BcryptCost: bcryptCost}
}

// ----- DTOs -----

type registerReq struct {
    Name     string `json:"name" validate:"required,max=100"`
    Email    string `json:"email" validate:"required,email,max=255"`
    Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginReq struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required"`
}

type loginResp struct {
    User      model.User `json:"user"`
    Token     string     `json:"token"`
    ExpiresAt time.Time  `json:"expires_at"`
}

// Register creates a STUDENT account.  Instructor and admin accounts are
// provisioned out of band.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    hash, err := utils.HashPassword(req.Password, h.BcryptCost)
    if err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Users.Create(ctx, strings.TrimSpace(req.Name), req.Email, hash, model.RoleStudent)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, u)
}

// Login checks the password, issues a session token and sets it as the
// session cookie.  The token is also returned for non-browser clients.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if errors.Is(err, repository.ErrUserNotFound) {
        return errInvalidCredentials
    }
    if err != nil {
        return err
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return errInvalidCredentials
    }

    cred, err := h.Tokens.Issue(u.ID)
    if err != nil {
        return err
    }
    c.SetCookie(&http.Cookie{
        Name:     h.CookieName,
        Value:    cred.Token,
        Path:     "/",
        Expires:  cred.ExpiresAt,
        MaxAge:   int(time.Until(cred.ExpiresAt).Seconds()),
        HttpOnly: true,
        Secure:   h.SecureCookie,
        SameSite: http.SameSiteLaxMode,
    })
    middleware.Logger(c).Info("login", zap.String("user_id", u.ID))
    return c.JSON(http.StatusOK, loginResp{User: u, Token: cred.Token, ExpiresAt: cred.ExpiresAt})
}

// Logout clears the session cookie.  Tokens are not tracked server side, so
// there is nothing else to revoke; the call succeeds with or without a
// session.
func (h *AuthHandler) Logout(c echo.Context) error {
    c.SetCookie(&http.Cookie{
        Name:     h.CookieName,
        Value:    "",
        Path:     "/",
        Expires:  time.Unix(0, 0),
        MaxAge:   -1,
        HttpOnly: true,
        Secure:   h.SecureCookie,
        SameSite: http.SameSiteLaxMode,
    })
    return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return errNoUser
    }
    return c.JSON(http.StatusOK, u)
}
