package utils // package utils provides helpers for session tokens, passwords and reset codes

import (
    "errors"
    "fmt"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/google/uuid"
)

// Token verification failures.  Callers at the HTTP boundary collapse all of
// them into "not authenticated"; the distinction exists for logs and tests.
var (
    ErrTokenMalformed = errors.New("token malformed")
    ErrTokenSignature = errors.New("token signature invalid")
    ErrTokenExpired   = errors.New("token expired")
)

// Credential is a signed session token together with its validity window.
type Credential struct {
    Token     string    // the serialized JWT string
    UserID    string    // subject encoded in the token
    IssuedAt  time.Time // UTC issue time
    ExpiresAt time.Time // UTC expiration time
}

// TokenCodec issues and verifies HS256 session tokens carrying a user id.
// It holds no mutable state and is safe for concurrent use.
type TokenCodec struct {
    secret []byte
    ttl    time.Duration
    now    func() time.Time
}

// NewTokenCodec returns a codec signing with secret.  Every issued token is
// valid for ttl.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
    return &TokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue builds and signs a token for userID.  The JWT carries the standard
// claims: subject (sub), issued at (iat), expiration (exp) and a random id
// (jti) so two tokens issued in the same second still differ.
func (c *TokenCodec) Issue(userID string) (Credential, error) {
    if userID == "" {
        return Credential{}, errors.New("issue token: empty user id")
    }
    // JWT timestamps have second precision; truncate so the returned
    // window matches what a verifier will decode.
    iat := c.now().UTC().Truncate(time.Second)
    exp := iat.Add(c.ttl)
    claims := jwt.RegisteredClaims{
        Subject:   userID,
        IssuedAt:  jwt.NewNumericDate(iat),
        ExpiresAt: jwt.NewNumericDate(exp),
        ID:        uuid.NewString(),
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
    if err != nil {
        return Credential{}, fmt.Errorf("sign token: %w", err)
    }
    return Credential{Token: signed, UserID: userID, IssuedAt: iat, ExpiresAt: exp}, nil
}

// Verify checks the signature and expiry of raw and returns the subject.
// Only HS256 is accepted, segments must be canonical base64url and no clock
// leeway is applied: a token is expired as soon as the verifier's clock
// reaches exp.
func (c *TokenCodec) Verify(raw string) (string, error) {
    claims := &jwt.RegisteredClaims{}
    _, err := jwt.ParseWithClaims(raw, claims,
        func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithExpirationRequired(),
        jwt.WithTimeFunc(c.now),
        // Reject non-canonical base64 so every altered character fails.
        jwt.WithStrictDecoding(),
    )
    switch {
    case err == nil:
    case errors.Is(err, jwt.ErrTokenExpired):
        return "", ErrTokenExpired
    case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
        return "", ErrTokenSignature
    default:
        return "", fmt.Errorf("%w: %v", ErrTokenMalformed, err)
    }
    if claims.Subject == "" {
        return "", ErrTokenMalformed
    }
    return claims.Subject, nil
}
