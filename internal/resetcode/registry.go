// Package resetcode keeps the one outstanding password-reset code per user.
//
// Records live in a Store.  The Redis store is shared by every service
// instance; the memory store only works for a single instance because each
// process would otherwise hold its own view of outstanding codes.
package resetcode

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Verification failures.  The HTTP layer reports all three as 404.
var (
	ErrCodeNotFound = errors.New("reset code not found")
	ErrCodeExpired  = errors.New("reset code expired")
	ErrCodeMismatch = errors.New("reset code mismatch")
)

// Record is the stored state of an outstanding code.
type Record struct {
	Code      string
	ExpiresAt time.Time
	Attempts  int
}

// Store persists records keyed by user id.  Every method must be atomic per
// key with respect to the others.
type Store interface {
	// Put replaces any record for userID.
	Put(ctx context.Context, userID string, rec Record) error
	// Consume checks code against the record at time now.  On a match the
	// record is deleted in the same step.  An expired record is deleted and
	// reported as ErrCodeExpired.  A wrong code increments Attempts; when
	// maxAttempts > 0 and it is reached the record is deleted.
	Consume(ctx context.Context, userID, code string, now time.Time, maxAttempts int) error
	// Delete removes any record for userID; absent records are not an error.
	Delete(ctx context.Context, userID string) error
}

// Registry issues, verifies and cancels reset codes over a Store.
type Registry struct {
	store       Store
	maxAttempts int
	now         func() time.Time
}

// NewRegistry returns a Registry backed by store.  maxAttempts bounds wrong
// guesses per issued code; zero disables the limit.
func NewRegistry(store Store, maxAttempts int) *Registry {
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	return &Registry{store: store, maxAttempts: maxAttempts, now: time.Now}
}

// Issue stores code for userID, valid for ttl from now.  Any code issued
// earlier for the same user stops being verifiable.
func (r *Registry) Issue(ctx context.Context, userID, code string, ttl time.Duration) error {
	if userID == "" || code == "" {
		return errors.New("issue reset code: empty user id or code")
	}
	if ttl <= 0 {
		return fmt.Errorf("issue reset code: non-positive ttl %s", ttl)
	}
	rec := Record{Code: code, ExpiresAt: r.now().Add(ttl)}
	if err := r.store.Put(ctx, userID, rec); err != nil {
		return fmt.Errorf("issue reset code: %w", err)
	}
	return nil
}

// Verify consumes the code for userID.  It succeeds at most once per issued
// record.
func (r *Registry) Verify(ctx context.Context, userID, code string) error {
	if userID == "" {
		return ErrCodeNotFound
	}
	err := r.store.Consume(ctx, userID, code, r.now(), r.maxAttempts)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCodeNotFound), errors.Is(err, ErrCodeExpired), errors.Is(err, ErrCodeMismatch):
		return err
	default:
		return fmt.Errorf("verify reset code: %w", err)
	}
}

// Cancel discards any outstanding code for userID.
func (r *Registry) Cancel(ctx context.Context, userID string) error {
	if err := r.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("cancel reset code: %w", err)
	}
	return nil
}
