package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ProviderFacebook = "facebook"

type Profile struct {
	FirstName string `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName  string `bson:"last_name,omitempty"  json:"last_name,omitempty"`
	Picture   string `bson:"picture,omitempty"    json:"picture,omitempty"`
	Gender    string `bson:"gender,omitempty"     json:"gender,omitempty"`
}

type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"                    json:"id"`
	Email                string             `bson:"email,omitempty"                  json:"email"`
	PasswordHash         string             `bson:"password_hash,omitempty"          json:"-"`
	PasswordResetToken   string             `bson:"password_reset_token,omitempty"   json:"-"` // sha256 of the issued token
	PasswordResetExpires *time.Time         `bson:"password_reset_expires,omitempty" json:"-"`
	FacebookID           string             `bson:"facebook_id,omitempty"            json:"facebook_id,omitempty"`
	FacebookToken        string             `bson:"facebook_token,omitempty"         json:"-"`
	Profile              Profile            `bson:"profile"                          json:"profile"`
	CreatedAt            time.Time          `bson:"created_at"                       json:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at"                       json:"updated_at"`
}

// FacebookLink is what linking writes onto a user. Nothing else on the
// record is touched.
type FacebookLink struct {
	ID      string
	Token   string
	Profile Profile
}

// NormalizeEmail is applied before every email comparison or write.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (u *User) HasPassword() bool { return u.PasswordHash != "" }

func (u *User) IsLinked() bool { return u.FacebookID != "" }

// ProviderTokens lists the external access tokens held by the user, keyed by provider.
func (u *User) ProviderTokens() map[string]string {
	out := map[string]string{}
	if u.FacebookToken != "" {
		out[ProviderFacebook] = u.FacebookToken
	}
	return out
}

func (u *User) ClearPasswordReset() {
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
}

// Gravatar returns the retro gravatar for the user's email at the given size.
func (u *User) Gravatar(size int) string {
	if size <= 0 {
		size = 200
	}
	if u.Email == "" {
		return fmt.Sprintf("https://gravatar.com/avatar/?s=%d&d=retro", size)
	}
	sum := md5.Sum([]byte(u.Email))
	return fmt.Sprintf("https://gravatar.com/avatar/%s?s=%d&d=retro", hex.EncodeToString(sum[:]), size)
}

// UserView is the external representation of a User. Credentials and reset
// state never leave the service.
type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Facebook  string    `json:"facebook,omitempty"`
	Profile   Profile   `json:"profile"`
	Linked    bool      `json:"linked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) View() *UserView {
	if u == nil {
		return nil
	}
	p := u.Profile
	if p.Picture == "" {
		p.Picture = u.Gravatar(200)
	}
	return &UserView{
		ID:        u.ID.Hex(),
		Email:     u.Email,
		Facebook:  u.FacebookID,
		Profile:   p,
		Linked:    u.IsLinked(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
