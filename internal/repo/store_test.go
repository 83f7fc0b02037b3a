package repo_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/identity-service/internal/domain"
	"github.com/tazhibayda/identity-service/internal/repo"
)

func newMongoStore(t *testing.T) *repo.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("needs docker")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	mc, err := mongodb.Run(ctx, "mongo:6")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mc.Terminate(context.Background()) })

	uri, err := mc.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := repo.NewStore(ctx, uri, "identity_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func TestUserRepo_Mongo(t *testing.T) {
	store := newMongoStore(t)
	users := store.Users()
	ctx := context.Background()

	t.Run("unique email under concurrency", func(t *testing.T) {
		var ok, dup atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := users.Insert(ctx, &domain.User{Email: "Race@X.com", PasswordHash: "h"})
				switch {
				case err == nil:
					ok.Add(1)
				case assert.ErrorIs(t, err, repo.ErrDuplicate):
					dup.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, ok.Load())
		assert.EqualValues(t, 9, dup.Load())

		u, err := users.FindByEmail(ctx, "race@x.com")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "race@x.com", u.Email)
	})

	t.Run("facebook id unique, absent ids do not collide", func(t *testing.T) {
		a := &domain.User{Email: "a@x.com", PasswordHash: "h"}
		b := &domain.User{Email: "b@x.com", PasswordHash: "h"}
		require.NoError(t, users.Insert(ctx, a))
		require.NoError(t, users.Insert(ctx, b))

		require.NoError(t, users.SetFacebook(ctx, a.ID, domain.FacebookLink{ID: "fb-1", Token: "t"}))
		assert.ErrorIs(t, users.SetFacebook(ctx, b.ID, domain.FacebookLink{ID: "fb-1"}), repo.ErrDuplicate)
		assert.ErrorIs(t, users.SetFacebook(ctx, a.ID, domain.FacebookLink{ID: "fb-2"}), repo.ErrDuplicate)

		got, err := users.FindByFacebookID(ctx, "fb-1")
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, "h", got.PasswordHash)
	})

	t.Run("reset token lookup and single use", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
		u := &domain.User{Email: "r@x.com", PasswordHash: "h"}
		require.NoError(t, users.Insert(ctx, u))
		require.NoError(t, users.SetResetToken(ctx, u.ID, "hash-1", exp))

		got, err := users.FindByResetToken(ctx, "hash-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, exp.Equal(*got.PasswordResetExpires))

		// linking in between keeps the token
		require.NoError(t, users.SetFacebook(ctx, u.ID, domain.FacebookLink{ID: "fb-r"}))

		require.NoError(t, users.SetPassword(ctx, u.ID, "h2", "hash-1"))
		assert.ErrorIs(t, users.SetPassword(ctx, u.ID, "h3", "hash-1"), repo.ErrNotFound)

		got, err = users.FindByResetToken(ctx, "hash-1")
		require.NoError(t, err)
		assert.Nil(t, got)
		got, err = users.FindByID(ctx, u.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, "h2", got.PasswordHash)
		assert.Equal(t, "fb-r", got.FacebookID)
	})

	t.Run("misses and bad ids", func(t *testing.T) {
		u, err := users.FindByID(ctx, "not-hex")
		assert.NoError(t, err)
		assert.Nil(t, u)

		missing := primitive.NewObjectID()
		assert.ErrorIs(t, users.SetPassword(ctx, missing, "h", ""), repo.ErrNotFound)
		assert.ErrorIs(t, users.SetFacebook(ctx, missing, domain.FacebookLink{ID: "fb-x"}), repo.ErrNotFound)
		assert.ErrorIs(t, users.Insert(ctx, &domain.User{Email: "bare@x.com"}), repo.ErrNoCredential)
	})

	t.Run("list", func(t *testing.T) {
		list, err := users.List(ctx, 2, 0)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})
}

func TestSessionRepo_Mongo(t *testing.T) {
	store := newMongoStore(t)
	sessions := store.Sessions()
	ctx := context.Background()
	uid := "65a000000000000000000001"

	sid, err := sessions.Create(ctx, uid, time.Hour)
	require.NoError(t, err)

	got, err := sessions.Lookup(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	expired, err := sessions.Create(ctx, uid, -time.Minute)
	require.NoError(t, err)
	got, err = sessions.Lookup(ctx, expired)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, sessions.Delete(ctx, sid))
	got, err = sessions.Lookup(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedis_DenylistAndLimiter(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	rc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Terminate(context.Background()) })

	addr, err := rc.Endpoint(ctx, "")
	require.NoError(t, err)
	r := repo.NewRedis(addr)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.Ping(ctx))

	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// already expired tokens need no entry
	require.NoError(t, r.Revoke(ctx, "jti-2", time.Now().Add(-time.Minute)))
	revoked, err = r.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	l := r.Limiter(2, time.Minute)
	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := r.C.TTL(ctx, "auth:rl:ip").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	// a window left without expiry gets one on the next hit
	require.NoError(t, r.C.Set(ctx, "auth:rl:stuck", 5, 0).Err())
	ok, err = l.Allow(ctx, "stuck")
	require.NoError(t, err)
	assert.False(t, ok)
	ttl, err = r.C.TTL(ctx, "auth:rl:stuck").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
