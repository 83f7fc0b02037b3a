package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrDuplicate    = errors.New("duplicate key")
	ErrNotFound     = errors.New("not found")
	ErrNoCredential = errors.New("user needs a password or a linked provider")
)

const (
	colUsers    = "users"
	colSessions = "sessions"
)

type Store struct {
	Client *mongo.Client
	DB     *mongo.Database
	now    func() time.Time
}

func NewStore(ctx context.Context, uri, dbname string) (*Store, error) {
	cli, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetMaxPoolSize(50),
	)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}
	return &Store{Client: cli, DB: cli.Database(dbname), now: time.Now}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

func (s *Store) Users() *UserRepo {
	return &UserRepo{col: s.DB.Collection(colUsers), now: s.now}
}

func (s *Store) Sessions() *SessionRepo {
	return &SessionRepo{col: s.DB.Collection(colSessions), now: s.now}
}

// EnsureIndexes creates the unique constraints the auth core relies on for
// serializing concurrent signups and links.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	exists := func(field string) bson.M { return bson.M{field: bson.M{"$exists": true}} }

	_, err := s.DB.Collection(colUsers).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email").SetPartialFilterExpression(exists("email")),
		},
		{
			Keys:    bson.D{{Key: "facebook_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_facebook_id").SetPartialFilterExpression(exists("facebook_id")),
		},
		{
			Keys:    bson.D{{Key: "password_reset_token", Value: 1}},
			Options: options.Index().SetName("reset_token").SetSparse(true),
		},
	})
	if err != nil {
		return err
	}

	_, err = s.DB.Collection(colSessions).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_token_hash"),
		},
		{
			// expired sessions are removed by Mongo; Lookup still checks expires_at
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expire"),
		},
	})
	return err
}

func IsDup(err error) bool {
	if err == nil {
		return false
	}
	return mongo.IsDuplicateKeyError(err)
}
