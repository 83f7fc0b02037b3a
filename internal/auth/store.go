package auth

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/identity-service/internal/domain"
)

// Store persists users. Lookups return (nil, nil) when nothing matches.
//
// Writes after Insert touch only the fields they name, so concurrent writes
// to one user for different purposes never undo each other. They return
// repo.ErrNotFound when the user (or, for SetPassword, the reset token) is
// gone.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByFacebookID(ctx context.Context, id string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByResetToken(ctx context.Context, tokenHash string) (*domain.User, error)
	// Insert returns repo.ErrDuplicate when the email or facebook id is taken.
	Insert(ctx context.Context, u *domain.User) error
	// SetFacebook returns repo.ErrDuplicate when the facebook id is held by
	// another record or the user is linked to a different one.
	SetFacebook(ctx context.Context, id primitive.ObjectID, link domain.FacebookLink) error
	// SetPassword stores hash and clears the reset fields. A non-empty
	// resetToken must still be the stored one, making reset tokens single use.
	SetPassword(ctx context.Context, id primitive.ObjectID, hash, resetToken string) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error
	List(ctx context.Context, limit, skip int) ([]domain.User, error)
}

// SessionStore binds opaque session ids to user ids. Lookup returns "" for
// unknown or expired sessions.
type SessionStore interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (string, error)
	Lookup(ctx context.Context, sid string) (string, error)
	Delete(ctx context.Context, sid string) error
}

// Denylist records bearer token ids revoked before their expiry.
type Denylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
