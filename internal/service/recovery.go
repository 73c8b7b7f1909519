package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/online-class-gate/internal/model"
	"github.com/iliyamo/online-class-gate/internal/queue"
	"github.com/iliyamo/online-class-gate/internal/repository"
	"github.com/iliyamo/online-class-gate/internal/resetcode"
	"github.com/iliyamo/online-class-gate/internal/utils"
)

// RecoveryUsers is the slice of the credential store recovery needs.
type RecoveryUsers interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// CodeRegistry issues and consumes one-time reset codes.
type CodeRegistry interface {
	Issue(ctx context.Context, userID, code string, ttl time.Duration) error
	Verify(ctx context.Context, userID, code string) error
	Cancel(ctx context.Context, userID string) error
}

// ResetMailer hands a code to whatever delivers it to the user.
type ResetMailer interface {
	PublishPasswordReset(ctx context.Context, ev queue.PasswordResetRequestedEvent) error
}

// Recovery is the password recovery flow: request a code by email, then
// trade the code for a new password.
type Recovery struct {
	users      RecoveryUsers
	codes      CodeRegistry
	mailer     ResetMailer
	log        *zap.Logger
	ttl        time.Duration
	bcryptCost int
	newCode    func() (string, error)
	now        func() time.Time
}

// NewRecovery wires the flow.  mailer may be nil, in which case codes are
// issued but not delivered (useful only in development).
func NewRecovery(users RecoveryUsers, codes CodeRegistry, mailer ResetMailer, log *zap.Logger, ttl time.Duration, bcryptCost int) *Recovery {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recovery{
		users:      users,
		codes:      codes,
		mailer:     mailer,
		log:        log,
		ttl:        ttl,
		bcryptCost: bcryptCost,
		newCode:    func() (string, error) { return utils.NewResetCode(6) },
		now:        time.Now,
	}
}

// RequestReset issues a fresh code for the account behind email and sends
// it.  Unknown emails succeed silently so the endpoint cannot be used to
// enumerate accounts.
func (s *Recovery) RequestReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		s.log.Debug("password reset for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("request reset: %w", err)
	}
	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("request reset: generate code: %w", err)
	}
	if err := s.codes.Issue(ctx, u.ID, code, s.ttl); err != nil {
		return fmt.Errorf("request reset: %w", err)
	}
	if s.mailer == nil {
		s.log.Warn("reset code issued without a mailer", zap.String("user_id", u.ID))
		return nil
	}
	ev := queue.PasswordResetRequestedEvent{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Code:      code,
		ExpiresAt: s.now().Add(s.ttl).UTC().Format(time.RFC3339),
	}
	if err := s.mailer.PublishPasswordReset(ctx, ev); err != nil {
		// Without delivery the code is useless; withdraw it so a retry
		// starts clean.
		_ = s.codes.Cancel(ctx, u.ID)
		return fmt.Errorf("request reset: deliver code: %w", err)
	}
	s.log.Info("password reset requested", zap.String("user_id", u.ID))
	return nil
}

// ResetPassword consumes code and stores newPassword.  An unknown email is
// reported as resetcode.ErrCodeNotFound.
func (s *Recovery) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: %v", ErrInvalidInput, utils.ErrPasswordTooShort)
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return resetcode.ErrCodeNotFound
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	// Hash before consuming the code so a hashing failure does not burn it.
	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.codes.Verify(ctx, u.ID, code); err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	s.log.Info("password reset completed", zap.String("user_id", u.ID))
	return nil
}

// CancelReset withdraws any outstanding code for email.  Idempotent.
func (s *Recovery) CancelReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cancel reset: %w", err)
	}
	return s.codes.Cancel(ctx, u.ID)
}
