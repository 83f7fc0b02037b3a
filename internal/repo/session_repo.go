package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/identity-service/internal/security"
)

// Session binds a browser cookie to a user. Only the sha256 of the cookie
// value is stored.
type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	TokenHash string             `bson:"token_hash"`
	UserID    primitive.ObjectID `bson:"user_id"`
	ExpiresAt time.Time          `bson:"expires_at"`
	CreatedAt time.Time          `bson:"created_at"`
}

type SessionRepo struct {
	col *mongo.Collection
	now func() time.Time
}

func (r *SessionRepo) Create(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return "", err
	}
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.session.insert", tracer.Tag("user_id", userID))
	defer sp.Finish()

	plain, err := security.NewOpaqueToken()
	if err != nil {
		return "", err
	}
	now := r.now().UTC()
	_, err = r.col.InsertOne(ctx, Session{
		TokenHash: security.HashToken(plain),
		UserID:    oid,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	if err != nil {
		sp.SetTag("error", err)
		return "", err
	}
	return plain, nil
}

// Lookup returns the user id bound to sid, or "" when the session is unknown
// or expired.
func (r *SessionRepo) Lookup(ctx context.Context, sid string) (string, error) {
	if sid == "" {
		return "", nil
	}
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.session.lookup")
	defer sp.Finish()

	var s Session
	err := r.col.FindOne(ctx, bson.M{
		"token_hash": security.HashToken(sid),
		"expires_at": bson.M{"$gt": r.now().UTC()},
	}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		sp.SetTag("error", err)
		return "", err
	}
	return s.UserID.Hex(), nil
}

func (r *SessionRepo) Delete(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	_, err := r.col.DeleteOne(ctx, bson.M{"token_hash": security.HashToken(sid)})
	return err
}
