package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/online-class-gate/internal/auth"
	"github.com/iliyamo/online-class-gate/internal/config"
	"github.com/iliyamo/online-class-gate/internal/model"
	"github.com/iliyamo/online-class-gate/internal/repository"
	"github.com/iliyamo/online-class-gate/internal/resetcode"
	"github.com/iliyamo/online-class-gate/internal/service"
	"github.com/iliyamo/online-class-gate/internal/utils"
)

type stubUsers map[string]model.User

func (s stubUsers) GetByID(_ context.Context, id string) (model.User, error) {
	if id == "broken" {
		return model.User{}, errors.New("connection refused")
	}
	u, ok := s[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func newServer(t *testing.T) (*echo.Echo, *utils.TokenCodec) {
	t.Helper()
	codec := utils.NewTokenCodec("mw-secret", time.Hour)
	users := stubUsers{
		"s1": {ID: "s1", Role: model.RoleStudent},
		"a1": {ID: "a1", Role: model.RoleAdmin},
	}
	gate := auth.NewGate(codec, users, "token")

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler()
	e.Use(RequestID(zap.NewNop()), RequestLogger())

	me := func(c echo.Context) error {
		u, _ := CurrentUser(c)
		return c.String(http.StatusOK, u.ID)
	}
	g := e.Group("/v1", Authenticate(gate))
	g.GET("/me", me)
	g.GET("/admin", me, RequireRole(model.RoleAdmin))
	e.GET("/v1/students", me, Authenticate(gate), RequireRole(model.RoleStudent, model.RoleInstructor))
	return e, codec
}

func do(t *testing.T, e *echo.Echo, codec *utils.TokenCodec, path, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userID != "" {
		cred, err := codec.Issue(userID)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "token", Value: cred.Token})
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	e, codec := newServer(t)

	rec := do(t, e, codec, "/v1/me", "s1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", rec.Body.String())

	rec = do(t, e, codec, "/v1/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthenticated"}`, rec.Body.String())

	rec = do(t, e, codec, "/v1/me", "ghost")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, e, codec, "/v1/me", "broken")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestRoleEnforcement(t *testing.T) {
	e, codec := newServer(t)

	assert.Equal(t, http.StatusOK, do(t, e, codec, "/v1/admin", "a1").Code)
	assert.Equal(t, http.StatusForbidden, do(t, e, codec, "/v1/admin", "s1").Code)
	assert.Equal(t, http.StatusOK, do(t, e, codec, "/v1/students", "s1").Code)
	assert.Equal(t, http.StatusForbidden, do(t, e, codec, "/v1/students", "a1").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, e, codec, "/v1/students", "").Code)
}

func TestRequireRoleWithoutUser(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	h := RequireRole(model.RoleAdmin)(func(echo.Context) error { return nil })

	assert.ErrorIs(t, h(c), auth.ErrUnauthenticated)
}

func TestRequestID(t *testing.T) {
	e, codec := newServer(t)

	rec := do(t, e, codec, "/v1/me", "s1")
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{auth.ErrUnauthenticated, http.StatusUnauthorized},
		{auth.ErrForbidden, http.StatusForbidden},
		{repository.ErrNotFoundOrAlreadyProcessed, http.StatusNotFound},
		{repository.ErrPaymentNotFound, http.StatusNotFound},
		{resetcode.ErrCodeNotFound, http.StatusNotFound},
		{resetcode.ErrCodeExpired, http.StatusNotFound},
		{resetcode.ErrCodeMismatch, http.StatusNotFound},
		{repository.ErrDuplicateReference, http.StatusConflict},
		{service.ErrInvalidInput, http.StatusBadRequest},
		{echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials"), http.StatusUnauthorized},
		{echo.ErrNotFound, http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		code, body := classify(tc.err)
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.NotEmpty(t, body["error"])
	}

	// Codes are indistinguishable in the body.
	_, a := classify(resetcode.ErrCodeExpired)
	_, b := classify(resetcode.ErrCodeMismatch)
	assert.Equal(t, a, b)
}

func newLimiter(t *testing.T) (*RateLimiter, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.RateLimitConfig{
		Enabled:  true,
		Prefix:   "rl",
		Session:  config.Bucket{Name: "session", Burst: 3, Every: time.Minute},
		Recovery: config.Bucket{Name: "recovery", Burst: 2, Every: time.Minute},
	}
	l := NewRateLimiter(cfg, rdb, nil)
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func limitedServer(l *RateLimiter) *echo.Echo {
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e := echo.New()
	e.POST("/v1/auth/login", ok, l.Session())
	pw := e.Group("/v1/auth/password", l.Recovery())
	pw.POST("/forgot", ok)
	pw.POST("/reset", ok)
	pw.POST("/cancel", ok)
	return e
}

func post(e *echo.Echo, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
	req.RemoteAddr = ip + ":5555"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRecoveryBucketSharedAcrossEndpoints(t *testing.T) {
	l, _ := newLimiter(t)
	e := limitedServer(l)

	assert.Equal(t, http.StatusOK, post(e, "/v1/auth/password/forgot", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, post(e, "/v1/auth/password/reset", "10.0.0.1").Code)

	rec := post(e, "/v1/auth/password/cancel", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusTooManyRequests, post(e, "/v1/auth/password/reset", "10.0.0.1").Code)

	// Session endpoints spend from their own bucket.
	assert.Equal(t, http.StatusOK, post(e, "/v1/auth/login", "10.0.0.1").Code)
	// Another client has its own buckets.
	assert.Equal(t, http.StatusOK, post(e, "/v1/auth/password/reset", "10.0.0.2").Code)
}

func TestSessionBucketRefills(t *testing.T) {
	l, clock := newLimiter(t)
	e := limitedServer(l)

	for i := 0; i < 3; i++ {
		rec := post(e, "/v1/auth/login", "10.0.0.1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, strconv.Itoa(2-i), rec.Header().Get("X-RateLimit-Remaining"))
	}
	assert.Equal(t, http.StatusTooManyRequests, post(e, "/v1/auth/login", "10.0.0.1").Code)

	*clock = clock.Add(time.Minute)
	assert.Equal(t, http.StatusOK, post(e, "/v1/auth/login", "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(e, "/v1/auth/login", "10.0.0.1").Code)
}

func TestRateLimiterWithoutRedisPassesThrough(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{
		Enabled: true,
		Session: config.Bucket{Name: "session", Burst: 1, Every: time.Hour},
	}, nil, nil)
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, l.Session())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
