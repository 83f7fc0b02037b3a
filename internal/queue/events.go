package queue

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRegistered struct {
	UserID primitive.ObjectID `json:"user_id"`
	Email  string             `json:"email"`
}

type UserLoggedIn struct {
	UserID primitive.ObjectID `json:"user_id"`
	Email  string             `json:"email"`
}

type UserLinked struct {
	UserID     primitive.ObjectID `json:"user_id"`
	Email      string             `json:"email"`
	FacebookID string             `json:"facebook_id"`
}

// PasswordResetRequested carries the plain reset token; only the mailer
// consumes it.
type PasswordResetRequested struct {
	UserID    primitive.ObjectID `json:"user_id"`
	Email     string             `json:"email"`
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
}
