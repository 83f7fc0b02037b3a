package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tazhibayda/identity-service/internal/domain"
	applog "github.com/tazhibayda/identity-service/internal/log"
	"github.com/tazhibayda/identity-service/internal/queue"
	"github.com/tazhibayda/identity-service/internal/repo"
)

// OAuthProfile is what the OAuth collaborator hands over after a successful
// Facebook login.
type OAuthProfile struct {
	ProviderID string
	Email      string
	FirstName  string
	LastName   string
	AvatarURL  string
	Gender     string
}

func facebookPicture(id string) string {
	return fmt.Sprintf("https://graph.facebook.com/%s/picture?type=large", id)
}

// Reconcile resolves a Facebook profile to exactly one stored user:
//  1. a user already linked to the profile id is returned unchanged;
//  2. otherwise a user with the profile's email gets the Facebook identity
//     attached, its profile overwritten and the access token stored;
//  3. otherwise AccountNotFound. Accounts are never created from an OAuth
//     callback alone.
func (s *Service) Reconcile(ctx context.Context, p OAuthProfile, accessToken string) (*domain.User, error) {
	if p.ProviderID == "" {
		return nil, domain.Validation("facebook profile has no id")
	}

	linked, err := s.store.FindByFacebookID(ctx, p.ProviderID)
	if err != nil {
		return nil, s.storeErr(ctx, "find user by facebook id", err)
	}
	if linked != nil {
		return linked, nil
	}

	email := domain.NormalizeEmail(p.Email)
	if email == "" {
		return nil, domain.ErrAccountNotFound
	}
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, s.storeErr(ctx, "find user by email", err)
	}
	if u == nil {
		return nil, domain.ErrAccountNotFound
	}
	if u.FacebookID != "" && u.FacebookID != p.ProviderID {
		return nil, domain.ErrAccountAlreadyLinked
	}

	picture := p.AvatarURL
	if picture == "" {
		picture = facebookPicture(p.ProviderID)
	}
	link := domain.FacebookLink{
		ID:    p.ProviderID,
		Token: accessToken,
		Profile: domain.Profile{
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Picture:   picture,
			Gender:    p.Gender,
		},
	}
	// only the link fields are written
	if err := s.store.SetFacebook(ctx, u.ID, link); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			return nil, domain.ErrAccountAlreadyLinked
		case errors.Is(err, repo.ErrNotFound):
			return nil, domain.ErrAccountNotFound
		}
		return nil, s.storeErr(ctx, "link facebook", err)
	}
	u, err = s.store.FindByID(ctx, u.ID.Hex())
	if err != nil {
		return nil, s.storeErr(ctx, "find user by id", err)
	}
	if u == nil {
		return nil, domain.ErrAccountNotFound
	}

	applog.From(ctx, s.log).Info("facebook linked",
		zap.String("user_id", u.ID.Hex()), zap.String("facebook_id", p.ProviderID))
	s.emit(ctx, queue.KeyUserLinked, queue.UserLinked{UserID: u.ID, Email: u.Email, FacebookID: u.FacebookID})
	return u, nil
}

// LinkFacebook reconciles the profile and signs the resolved user in.
func (s *Service) LinkFacebook(ctx context.Context, p OAuthProfile, accessToken string) (*Result, error) {
	u, err := s.Reconcile(ctx, p, accessToken)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, u)
}
