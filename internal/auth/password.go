package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/tazhibayda/identity-service/internal/domain"
	"github.com/tazhibayda/identity-service/internal/queue"
	"github.com/tazhibayda/identity-service/internal/repo"
	"github.com/tazhibayda/identity-service/internal/security"
)

// ResetRequest is returned by RequestPasswordReset. Token is the plain value
// mailed to the user; only its hash is stored.
type ResetRequest struct {
	User  *domain.User
	Token string
}

func (s *Service) RequestPasswordReset(ctx context.Context, email string) (*ResetRequest, error) {
	email = domain.NormalizeEmail(email)
	if err := s.checkEmail(email); err != nil {
		return nil, err
	}
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, s.storeErr(ctx, "find user by email", err)
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}

	tok, expires, err := security.NewResetToken(s.now(), s.resetTTL)
	if err != nil {
		return nil, fmt.Errorf("reset token: %w", err)
	}
	if err := s.store.SetResetToken(ctx, u.ID, security.HashToken(tok), expires); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, s.storeErr(ctx, "store reset token", err)
	}
	u.PasswordResetToken = security.HashToken(tok)
	u.PasswordResetExpires = &expires

	s.emit(ctx, queue.KeyPasswordResetRequested, queue.PasswordResetRequested{
		UserID: u.ID, Email: u.Email, Token: tok, ExpiresAt: expires,
	})
	return &ResetRequest{User: u, Token: tok}, nil
}

// ResetPassword sets a new password for the holder of a live reset token and
// signs them in. The token is single use.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirmation string) (*Result, error) {
	if token == "" {
		return nil, domain.ErrResetTokenInvalid
	}
	if err := s.checkPassword(password, confirmation); err != nil {
		return nil, err
	}

	digest := security.HashToken(token)
	u, err := s.store.FindByResetToken(ctx, digest)
	if err != nil {
		return nil, s.storeErr(ctx, "find user by reset token", err)
	}
	if u == nil || u.PasswordResetExpires == nil || !s.now().Before(*u.PasswordResetExpires) {
		return nil, domain.ErrResetTokenInvalid
	}

	if err := s.setPassword(ctx, u, password, digest); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// the token was used by a concurrent reset
			return nil, domain.ErrResetTokenInvalid
		}
		return nil, err
	}
	return s.establish(ctx, u)
}

func (s *Service) ChangePassword(ctx context.Context, userID, password, confirmation string) error {
	if err := s.checkPassword(password, confirmation); err != nil {
		return err
	}
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, u, password, "")
}

func (s *Service) checkPassword(password, confirmation string) error {
	if len(password) < MinPasswordLen {
		return domain.Validation("password must be at least 4 characters long")
	}
	if confirmation != "" && confirmation != password {
		return domain.ErrPasswordMismatch
	}
	return nil
}

// setPassword is the only place a stored hash is recomputed. A non-empty
// resetToken must still be stored for the write to land.
func (s *Service) setPassword(ctx context.Context, u *domain.User, password, resetToken string) error {
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.SetPassword(ctx, u.ID, hash, resetToken); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return s.storeErr(ctx, "update password", err)
	}
	u.PasswordHash = hash
	u.ClearPasswordReset()
	return nil
}
