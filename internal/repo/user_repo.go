package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/identity-service/internal/domain"
)

type UserRepo struct {
	col *mongo.Collection
	now func() time.Time
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "mongo.user.find_by_email", bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *UserRepo) FindByFacebookID(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, nil
	}
	return r.findOne(ctx, "mongo.user.find_by_facebook", bson.M{"facebook_id": id})
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, "mongo.user.find_by_id", bson.M{"_id": oid})
}

func (r *UserRepo) FindByResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	if tokenHash == "" {
		return nil, nil
	}
	return r.findOne(ctx, "mongo.user.find_by_reset_token", bson.M{"password_reset_token": tokenHash})
}

func (r *UserRepo) findOne(ctx context.Context, op string, filter bson.M) (*domain.User, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, op)
	defer sp.Finish()

	var u domain.User
	err := r.col.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Insert(ctx context.Context, u *domain.User) error {
	if !u.HasPassword() && !u.IsLinked() {
		return ErrNoCredential
	}
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.user.insert")
	defer sp.Finish()

	now := r.now().UTC()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = domain.NormalizeEmail(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now

	if _, err := r.col.InsertOne(ctx, u); err != nil {
		sp.SetTag("error", err)
		if IsDup(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// write applies update to the user matching filter. A miss is ErrNotFound
// unless conflict reports that the user exists.
func (r *UserRepo) write(ctx context.Context, op string, id primitive.ObjectID, filter, update bson.M, conflict error) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, op, tracer.Tag("user_id", id.Hex()))
	defer sp.Finish()

	filter["_id"] = id
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		sp.SetTag("error", err)
		if IsDup(err) {
			return ErrDuplicate
		}
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if conflict != nil {
		n, err := r.col.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if n > 0 {
			return conflict
		}
	}
	return ErrNotFound
}

// SetFacebook links the user unless it already carries a different facebook id.
func (r *UserRepo) SetFacebook(ctx context.Context, id primitive.ObjectID, link domain.FacebookLink) error {
	filter := bson.M{"$or": bson.A{
		bson.M{"facebook_id": bson.M{"$exists": false}},
		bson.M{"facebook_id": link.ID},
	}}
	update := bson.M{"$set": bson.M{
		"facebook_id":    link.ID,
		"facebook_token": link.Token,
		"profile":        link.Profile,
		"updated_at":     r.now().UTC(),
	}}
	return r.write(ctx, "mongo.user.set_facebook", id, filter, update, ErrDuplicate)
}

func (r *UserRepo) SetPassword(ctx context.Context, id primitive.ObjectID, hash, resetToken string) error {
	filter := bson.M{}
	if resetToken != "" {
		filter["password_reset_token"] = resetToken
	}
	update := bson.M{
		"$set":   bson.M{"password_hash": hash, "updated_at": r.now().UTC()},
		"$unset": bson.M{"password_reset_token": "", "password_reset_expires": ""},
	}
	return r.write(ctx, "mongo.user.set_password", id, filter, update, nil)
}

func (r *UserRepo) SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	update := bson.M{"$set": bson.M{
		"password_reset_token":   tokenHash,
		"password_reset_expires": expires.UTC(),
		"updated_at":             r.now().UTC(),
	}}
	return r.write(ctx, "mongo.user.set_reset_token", id, bson.M{}, update, nil)
}

func (r *UserRepo) List(ctx context.Context, limit, skip int) ([]domain.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}
	cur, err := r.col.Find(ctx, bson.M{},
		options.Find().SetLimit(int64(limit)).SetSkip(int64(skip)).
			SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.User{}
	for cur.Next(ctx) {
		var u domain.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, cur.Err()
}
