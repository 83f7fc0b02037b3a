package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/identity-service/internal/auth"
)

const DefaultGraphURL = "https://graph.facebook.com/v19.0"

// ErrTokenRejected means Facebook no longer accepts the stored access token;
// the user has to run the OAuth flow again.
var ErrTokenRejected = errors.New("facebook rejected access token")

// Graph is a thin client for the Facebook Graph API.
type Graph struct {
	base string
}

func NewGraph(base string) *Graph {
	if base == "" {
		base = DefaultGraphURL
	}
	return &Graph{base: strings.TrimRight(base, "/")}
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Get calls path with the token and decodes the body into out. A nil out
// leaves the body undecoded.
func (g *Graph) Get(ctx context.Context, token, path string, q url.Values, out any) (err error) {
	span, ctx := tracer.StartSpanFromContext(ctx, "facebook.graph", tracer.ResourceName(path))
	defer func() { span.Finish(tracer.WithError(err)) }()

	u := g.base + "/" + strings.TrimLeft(path, "/")
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("graph %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("graph %s: read: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		var ge graphError
		_ = json.Unmarshal(body, &ge)
		// 190 is OAuthException: expired, revoked or otherwise invalid token
		if resp.StatusCode == http.StatusUnauthorized || ge.Error.Code == 190 {
			return ErrTokenRejected
		}
		return fmt.Errorf("graph %s: status %d: %s", path, resp.StatusCode, ge.Error.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("graph %s: decode: %w", path, err)
	}
	return nil
}

type me struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Gender    string `json:"gender"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// Me fetches the token owner's profile.
func (g *Graph) Me(ctx context.Context, token string) (auth.OAuthProfile, error) {
	var m me
	q := url.Values{"fields": {"id,email,first_name,last_name,gender,picture.type(large)"}}
	if err := g.Get(ctx, token, "me", q, &m); err != nil {
		return auth.OAuthProfile{}, err
	}
	if m.ID == "" {
		return auth.OAuthProfile{}, errors.New("graph me: empty id")
	}
	return auth.OAuthProfile{
		ProviderID: m.ID,
		Email:      m.Email,
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		Gender:     m.Gender,
		AvatarURL:  m.Picture.Data.URL,
	}, nil
}

// Raw fetches path and returns the response body as-is; used by the API
// proxies.
func (g *Graph) Raw(ctx context.Context, token, path string, q url.Values) (json.RawMessage, error) {
	var out json.RawMessage
	if err := g.Get(ctx, token, path, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Graph) Albums(ctx context.Context, token, userID string) (json.RawMessage, error) {
	return g.Raw(ctx, token, url.PathEscape(userID)+"/albums", url.Values{"fields": {"id,name,count,cover_photo"}})
}

func (g *Graph) AlbumPhotos(ctx context.Context, token, albumID string) (json.RawMessage, error) {
	return g.Raw(ctx, token, url.PathEscape(albumID)+"/photos", url.Values{"fields": {"id,name,images,created_time"}})
}

func (g *Graph) Photo(ctx context.Context, token, photoID string) (json.RawMessage, error) {
	return g.Raw(ctx, token, url.PathEscape(photoID), url.Values{"fields": {"id,name,images,album,created_time"}})
}
