// Package memory keeps users, sessions, revocations and rate-limit windows in
// process memory. It backs STORE_BACKEND=memory and the package tests; the
// uniqueness rules match the Mongo indexes.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/identity-service/internal/domain"
	"github.com/tazhibayda/identity-service/internal/repo"
)

type Users struct {
	mu      sync.RWMutex
	byID    map[primitive.ObjectID]*domain.User
	byEmail map[string]primitive.ObjectID
	byFB    map[string]primitive.ObjectID
	now     func() time.Time
}

func NewUsers() *Users {
	return &Users{
		byID:    map[primitive.ObjectID]*domain.User{},
		byEmail: map[string]primitive.ObjectID{},
		byFB:    map[string]primitive.ObjectID{},
		now:     time.Now,
	}
}

func clone(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.PasswordResetExpires != nil {
		t := *u.PasswordResetExpires
		c.PasswordResetExpires = &t
	}
	return &c
}

func (s *Users) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byEmail[domain.NormalizeEmail(email)]; ok {
		return clone(s.byID[id]), nil
	}
	return nil, nil
}

func (s *Users) FindByFacebookID(_ context.Context, fbID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byFB[fbID]; ok && fbID != "" {
		return clone(s.byID[id]), nil
	}
	return nil, nil
}

func (s *Users) FindByID(_ context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.byID[oid]), nil
}

func (s *Users) FindByResetToken(_ context.Context, tokenHash string) (*domain.User, error) {
	if tokenHash == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byID {
		if u.PasswordResetToken == tokenHash {
			return clone(u), nil
		}
	}
	return nil, nil
}

// conflict reports whether u's email or facebook id is held by another record.
func (s *Users) conflict(u *domain.User) bool {
	if id, ok := s.byEmail[u.Email]; ok && u.Email != "" && id != u.ID {
		return true
	}
	if id, ok := s.byFB[u.FacebookID]; ok && u.FacebookID != "" && id != u.ID {
		return true
	}
	return false
}

func (s *Users) index(u *domain.User) {
	if u.Email != "" {
		s.byEmail[u.Email] = u.ID
	}
	if u.FacebookID != "" {
		s.byFB[u.FacebookID] = u.ID
	}
	s.byID[u.ID] = clone(u)
}

func (s *Users) Insert(_ context.Context, u *domain.User) error {
	if !u.HasPassword() && !u.IsLinked() {
		return repo.ErrNoCredential
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = domain.NormalizeEmail(u.Email)
	if _, exists := s.byID[u.ID]; exists || s.conflict(u) {
		return repo.ErrDuplicate
	}
	now := s.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	s.index(u)
	return nil
}

// SetFacebook mirrors the Mongo filter: the user must be unlinked or already
// linked to link.ID, and no other user may hold link.ID.
func (s *Users) SetFacebook(_ context.Context, id primitive.ObjectID, link domain.FacebookLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	if u.FacebookID != "" && u.FacebookID != link.ID {
		return repo.ErrDuplicate
	}
	if holder, taken := s.byFB[link.ID]; taken && holder != id {
		return repo.ErrDuplicate
	}
	u.FacebookID = link.ID
	u.FacebookToken = link.Token
	u.Profile = link.Profile
	u.UpdatedAt = s.now().UTC()
	s.byFB[link.ID] = id
	return nil
}

func (s *Users) SetPassword(_ context.Context, id primitive.ObjectID, hash, resetToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok || (resetToken != "" && u.PasswordResetToken != resetToken) {
		return repo.ErrNotFound
	}
	u.PasswordHash = hash
	u.ClearPasswordReset()
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Users) SetResetToken(_ context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	exp := expires.UTC()
	u.PasswordResetToken = tokenHash
	u.PasswordResetExpires = &exp
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Users) List(_ context.Context, limit, skip int) ([]domain.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}
	s.mu.RLock()
	all := make([]domain.User, 0, len(s.byID))
	for _, u := range s.byID {
		all = append(all, *clone(u))
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.Hex() < all[j].ID.Hex()
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if skip >= len(all) {
		return []domain.User{}, nil
	}
	all = all[skip:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Len is the number of stored users.
func (s *Users) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
