// Package auth reconciles local credentials, Facebook identities and
// session/bearer identities into one canonical user, and issues the session
// and token that represent it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tazhibayda/identity-service/internal/domain"
	applog "github.com/tazhibayda/identity-service/internal/log"
	"github.com/tazhibayda/identity-service/internal/queue"
	"github.com/tazhibayda/identity-service/internal/repo"
	"github.com/tazhibayda/identity-service/internal/security"
)

const MinPasswordLen = 4

type Deps struct {
	Store      Store
	Sessions   SessionStore
	Revoked    Denylist
	Hasher     *security.Hasher
	Issuer     *security.Issuer
	Events     queue.Publisher
	Exchange   string
	Logger     *zap.Logger
	Now        func() time.Time
	SessionTTL time.Duration
	ResetTTL   time.Duration
}

type Service struct {
	store      Store
	sessions   SessionStore
	revoked    Denylist
	hasher     *security.Hasher
	issuer     *security.Issuer
	events     queue.Publisher
	exchange   string
	log        *zap.Logger
	now        func() time.Time
	sessionTTL time.Duration
	resetTTL   time.Duration
	validate   *validator.Validate
}

func NewService(d Deps) *Service {
	s := &Service{
		store:      d.Store,
		sessions:   d.Sessions,
		revoked:    d.Revoked,
		hasher:     d.Hasher,
		issuer:     d.Issuer,
		events:     d.Events,
		exchange:   d.Exchange,
		log:        d.Logger,
		now:        d.Now,
		sessionTTL: d.SessionTTL,
		resetTTL:   d.ResetTTL,
		validate:   validator.New(),
	}
	if s.events == nil {
		s.events = queue.NewNoop()
	}
	if s.exchange == "" {
		s.exchange = "auth.events"
	}
	if s.log == nil {
		s.log = applog.L()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = 14 * 24 * time.Hour
	}
	if s.resetTTL <= 0 {
		s.resetTTL = time.Hour
	}
	return s
}

// Result is what a successful signup, login, link or reset hands back to the
// caller: the resolved user, its bearer token and its session id.
type Result struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
	SessionID string
}

type SignupInput struct {
	Email        string
	Password     string
	Confirmation string
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*Result, error) {
	email := domain.NormalizeEmail(in.Email)
	if err := s.checkEmail(email); err != nil {
		return nil, err
	}
	if len(in.Password) < MinPasswordLen {
		return nil, domain.Validation("password must be at least 4 characters long")
	}

	existing, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, s.storeErr(ctx, "find user by email", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateAccount
	}
	if in.Confirmation != "" && in.Confirmation != in.Password {
		return nil, domain.ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{Email: email, PasswordHash: hash}
	if err := s.store.Insert(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, domain.ErrDuplicateAccount
		}
		return nil, s.storeErr(ctx, "insert user", err)
	}

	res, err := s.establish(ctx, u)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, queue.KeyUserRegistered, queue.UserRegistered{UserID: u.ID, Email: u.Email})
	return res, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	email = domain.NormalizeEmail(email)
	if err := s.checkEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, domain.Validation("password cannot be blank")
	}

	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, s.storeErr(ctx, "find user by email", err)
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	if !s.hasher.Verify(ctx, password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	res, err := s.establish(ctx, u)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, queue.KeyUserLoggedIn, queue.UserLoggedIn{UserID: u.ID, Email: u.Email})
	return res, nil
}

// Logout destroys the principal's session and revokes its bearer token.
func (s *Service) Logout(ctx context.Context, p *Principal) error {
	if p == nil {
		return nil
	}
	if p.SessionID != "" {
		if err := s.sessions.Delete(ctx, p.SessionID); err != nil {
			return s.storeErr(ctx, "delete session", err)
		}
	}
	if p.TokenID != "" && s.revoked != nil {
		if err := s.revoked.Revoke(ctx, p.TokenID, p.TokenExpires); err != nil {
			return s.storeErr(ctx, "revoke token", err)
		}
	}
	return nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeErr(ctx, "find user by id", err)
	}
	if u == nil {
		return nil, &domain.Error{Kind: domain.KindUserNotFound, Message: fmt.Sprintf("user with id %q does not exist", id)}
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, limit, skip int) ([]domain.User, error) {
	users, err := s.store.List(ctx, limit, skip)
	if err != nil {
		return nil, s.storeErr(ctx, "list users", err)
	}
	return users, nil
}

// establish issues the bearer token and opens the session. A failure here
// fails the whole operation even though the user record is already stored.
func (s *Service) establish(ctx context.Context, u *domain.User) (*Result, error) {
	tok, claims, err := s.issuer.Issue(u.ID.Hex(), u.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	sid, err := s.sessions.Create(ctx, u.ID.Hex(), s.sessionTTL)
	if err != nil {
		applog.From(ctx, s.log).Error("session create failed",
			zap.String("user_id", u.ID.Hex()), zap.Error(err))
		return nil, domain.SessionFailed(err)
	}
	return &Result{User: u, Token: tok, ExpiresAt: claims.ExpiresAt.Time, SessionID: sid}, nil
}

func (s *Service) checkEmail(email string) error {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return domain.Validation("email is not valid")
	}
	return nil
}

// storeErr logs a persistence failure and converts it to StoreUnavailable.
func (s *Service) storeErr(ctx context.Context, op string, err error) error {
	applog.From(ctx, s.log).Error("store failure", zap.String("op", op), zap.Error(err))
	return domain.StoreUnavailable(fmt.Errorf("%s: %w", op, err))
}

// emit publishes asynchronously; event delivery never fails the request.
func (s *Service) emit(ctx context.Context, key string, event any) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.events.Publish(ctx, s.exchange, key, event); err != nil {
			applog.From(ctx, s.log).Warn("publish event", zap.String("key", key), zap.Error(err))
		}
	}()
}
