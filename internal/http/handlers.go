package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tazhibayda/identity-service/internal/auth"
	"github.com/tazhibayda/identity-service/internal/domain"
	"github.com/tazhibayda/identity-service/internal/helper"
	applog "github.com/tazhibayda/identity-service/internal/log"
	"github.com/tazhibayda/identity-service/internal/metrics"
	"github.com/tazhibayda/identity-service/internal/oauth"
	"github.com/tazhibayda/identity-service/internal/security"
)

const stateCookie = "oauth_state"

type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

type Handler struct {
	Auth     *auth.Service
	Facebook *oauth.Facebook // nil when Facebook login is not configured
	Graph    *oauth.Graph
	Keys     *security.KeyManager // nil in HS256 mode
	Cookie   CookieConfig
	Log      *zap.Logger
	// named dependency checks run by /healthz
	Checks map[string]func(context.Context) error
}

func (h *Handler) outcome(c *gin.Context, op, email string, err error) {
	result := "ok"
	if err != nil {
		result = string(domain.KindOf(err))
	}
	metrics.AuthOutcomes.WithLabelValues(op, result).Inc()
	if err != nil && !domain.Operational(err) {
		applog.From(c.Request.Context(), h.Log).Info("auth rejected",
			zap.String("op", op), zap.String("result", result), zap.String("email_tag", helper.EmailTag(email)))
	}
}

// bindErr converts a binding failure into a ValidationError.
func bindErr(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		f := ve[0]
		field := strings.ToLower(f.Field())
		switch f.Tag() {
		case "required":
			return domain.Validation(field + " cannot be blank")
		case "email":
			return domain.Validation("email is not valid")
		case "min":
			return domain.Validation(fmt.Sprintf("%s must be at least %s characters long", field, f.Param()))
		default:
			return domain.Validation(field + " is invalid")
		}
	}
	return domain.Validation("malformed request body")
}

type signupReq struct {
	Email           string `json:"email" form:"email" binding:"required"`
	Password        string `json:"password" form:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
	// older clients send the confirmation under this name
	ConfirmationPassword string `json:"confirmation_password" form:"confirmation_password"`
}

func (r signupReq) confirmation() string {
	if r.ConfirmationPassword != "" {
		return r.ConfirmationPassword
	}
	return r.ConfirmPassword
}

// Signup godoc
// @Summary Create a local account
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body signupReq true "signup"
// @Success 201 {object} Envelope
// @Failure 400 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /api/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var in signupReq
	if err := c.ShouldBind(&in); err != nil {
		h.fail(c, bindErr(err))
		return
	}
	res, err := h.Auth.Signup(c.Request.Context(), auth.SignupInput{
		Email: in.Email, Password: in.Password, Confirmation: in.confirmation(),
	})
	h.outcome(c, "signup", in.Email, err)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.signedIn(c, http.StatusCreated, res)
}

type loginReq struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Login godoc
// @Summary Sign in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginReq true "login"
// @Success 200 {object} Envelope
// @Failure 401 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /api/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBind(&in); err != nil {
		h.fail(c, bindErr(err))
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), in.Email, in.Password)
	h.outcome(c, "login", in.Email, err)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.signedIn(c, http.StatusOK, res)
}

// Logout godoc
// @Summary End the session and revoke the bearer token
// @Tags auth
// @Produce json
// @Success 200 {object} Envelope
// @Router /api/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	if err := h.Auth.Logout(c.Request.Context(), principal(c)); err != nil {
		h.fail(c, err)
		return
	}
	h.clearSession(c)
	c.JSON(http.StatusOK, Envelope{Message: "logged out"})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} Envelope
// @Failure 401 {object} Envelope
// @Router /api/me [get]
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, Envelope{User: principal(c).User.View()})
}

// Users godoc
// @Summary List users
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param limit query int false "page size (max 200)"
// @Param skip query int false "offset"
// @Success 200 {object} map[string]any
// @Router /api/users [get]
func (h *Handler) Users(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	users, err := h.Auth.ListUsers(c.Request.Context(), limit, skip)
	if err != nil {
		h.fail(c, err)
		return
	}
	views := make([]*domain.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}
	c.JSON(http.StatusOK, gin.H{"users": views})
}

// User godoc
// @Summary Get a user by id
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param id path string true "user id"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /api/user/{id} [get]
func (h *Handler) User(c *gin.Context) {
	u, err := h.Auth.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Envelope{User: u.View()})
}

type forgotReq struct {
	Email string `json:"email" form:"email" binding:"required"`
}

// Forgot godoc
// @Summary Request a password reset email
// @Tags password
// @Accept json
// @Produce json
// @Param payload body forgotReq true "email"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /api/forgot [post]
func (h *Handler) Forgot(c *gin.Context) {
	var in forgotReq
	if err := c.ShouldBind(&in); err != nil {
		h.fail(c, bindErr(err))
		return
	}
	req, err := h.Auth.RequestPasswordReset(c.Request.Context(), in.Email)
	h.outcome(c, "forgot", in.Email, err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Envelope{
		Message: fmt.Sprintf("An e-mail has been sent to %s with further instructions.", req.User.Email),
	})
}

type passwordReq struct {
	Password string `json:"password" form:"password" binding:"required"`
	Confirm  string `json:"confirm" form:"confirm"`
}

// Reset godoc
// @Summary Set a new password with a reset token
// @Tags password
// @Accept json
// @Produce json
// @Param token path string true "reset token"
// @Param payload body passwordReq true "new password"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Router /api/reset/{token} [post]
func (h *Handler) Reset(c *gin.Context) {
	var in passwordReq
	if err := c.ShouldBind(&in); err != nil {
		h.fail(c, bindErr(err))
		return
	}
	res, err := h.Auth.ResetPassword(c.Request.Context(), c.Param("token"), in.Password, in.Confirm)
	h.outcome(c, "reset", "", err)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.signedIn(c, http.StatusOK, res)
}

// ChangePassword godoc
// @Summary Change the current user's password
// @Tags password
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body passwordReq true "new password"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Router /api/account/password [post]
func (h *Handler) ChangePassword(c *gin.Context) {
	var in passwordReq
	if err := c.ShouldBind(&in); err != nil {
		h.fail(c, bindErr(err))
		return
	}
	p := principal(c)
	if err := h.Auth.ChangePassword(c.Request.Context(), p.UserID(), in.Password, in.Confirm); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Envelope{Message: "password has been changed"})
}

// graphProxy serves a Graph API call made with the principal's Facebook
// token. A rejected token sends the client back through the OAuth flow.
// Routes with an :id param name the local user whose token is used; only the
// principal's own id is accepted.
func (h *Handler) graphProxy(call func(ctx context.Context, token string, c *gin.Context) (any, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := principal(c)
		if id := c.Param("id"); id != "" && id != p.UserID() {
			h.fail(c, domain.ErrForbidden)
			return
		}
		var out any
		err := WithSpan(c.Request.Context(), "facebook.proxy", func(ctx context.Context) error {
			var err error
			out, err = call(ctx, p.User.FacebookToken, c)
			return err
		})
		if errors.Is(err, oauth.ErrTokenRejected) {
			deny(c, auth.Reauthorize(domain.ProviderFacebook))
			return
		}
		if err != nil {
			applog.From(c.Request.Context(), h.Log).Warn("graph call failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusBadGateway, Envelope{Error: strPtr(string(domain.KindInternal)), Message: "facebook request failed"})
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// FacebookProfile godoc
// @Summary Facebook profile of the current user
// @Tags facebook
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 403 {object} Envelope
// @Router /api/facebook [get]
func (h *Handler) FacebookProfile() gin.HandlerFunc {
	return h.graphProxy(func(ctx context.Context, token string, c *gin.Context) (any, error) {
		body, err := h.Graph.Raw(ctx, token, "me", nil)
		if err != nil {
			return nil, err
		}
		return gin.H{"profile": body, "user": principal(c).User.View()}, nil
	})
}

// Albums godoc
// @Summary Facebook albums of the current user
// @Tags facebook
// @Security BearerAuth
// @Produce json
// @Param id path string true "local user id, must be the caller's"
// @Success 200 {object} map[string]any
// @Failure 403 {object} Envelope
// @Router /api/albums/{id} [get]
func (h *Handler) Albums() gin.HandlerFunc {
	return h.graphProxy(func(ctx context.Context, token string, c *gin.Context) (any, error) {
		return h.Graph.Albums(ctx, token, principal(c).User.FacebookID)
	})
}

// Album godoc
// @Summary Photos of an album
// @Tags facebook
// @Security BearerAuth
// @Produce json
// @Param id path string true "local user id, must be the caller's"
// @Param album_id path string true "album id"
// @Success 200 {object} map[string]any
// @Failure 403 {object} Envelope
// @Router /api/album/{id}/{album_id} [get]
func (h *Handler) Album() gin.HandlerFunc {
	return h.graphProxy(func(ctx context.Context, token string, c *gin.Context) (any, error) {
		return h.Graph.AlbumPhotos(ctx, token, c.Param("album_id"))
	})
}

// Photo godoc
// @Summary A single photo
// @Tags facebook
// @Security BearerAuth
// @Produce json
// @Param id path string true "local user id, must be the caller's"
// @Param photo_id path string true "photo id"
// @Success 200 {object} map[string]any
// @Failure 403 {object} Envelope
// @Router /api/photo/{id}/{photo_id} [get]
func (h *Handler) Photo() gin.HandlerFunc {
	return h.graphProxy(func(ctx context.Context, token string, c *gin.Context) (any, error) {
		return h.Graph.Photo(ctx, token, c.Param("photo_id"))
	})
}

// FacebookStart godoc
// @Summary Start Facebook login
// @Tags oauth
// @Success 302
// @Router /auth/facebook [get]
func (h *Handler) FacebookStart(c *gin.Context) {
	if h.Facebook == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, Envelope{Error: strPtr(string(domain.KindValidation)), Message: "facebook login is not configured"})
		return
	}
	nonce, err := security.NewOpaqueToken()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, nonce, int((10 * time.Minute).Seconds()), "/auth/facebook", "", h.Cookie.Secure, true)
	c.Redirect(http.StatusFound, h.Facebook.AuthURL(h.Facebook.MakeState(nonce)))
}

// FacebookCallback godoc
// @Summary Facebook login callback; links the profile to a local account
// @Tags oauth
// @Produce json
// @Param code query string true "authorization code"
// @Param state query string true "signed state"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /auth/facebook/callback [get]
func (h *Handler) FacebookCallback(c *gin.Context) {
	if h.Facebook == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, Envelope{Error: strPtr(string(domain.KindValidation)), Message: "facebook login is not configured"})
		return
	}
	if e := c.Query("error"); e != "" {
		deny(c, auth.Decision{Kind: domain.KindUnauthenticated, Reason: "facebook login was cancelled: " + e})
		return
	}
	nonce, _ := c.Cookie(stateCookie)
	raw, ok := h.Facebook.VerifyState(c.Query("state"))
	if !ok || nonce == "" || raw != nonce {
		h.fail(c, domain.Validation("invalid oauth state"))
		return
	}
	c.SetCookie(stateCookie, "", -1, "/auth/facebook", "", h.Cookie.Secure, true)

	var res *auth.Result
	err := WithSpan(c.Request.Context(), "oauth.facebook.callback", func(ctx context.Context) error {
		profile, token, err := h.Facebook.Exchange(ctx, c.Query("code"))
		if err != nil {
			applog.From(ctx, h.Log).Warn("facebook exchange failed", zap.Error(err))
			return &domain.Error{Kind: domain.KindUnauthenticated, Message: "facebook login failed", Err: err}
		}
		res, err = h.Auth.LinkFacebook(ctx, profile, token)
		h.outcome(c, "link", profile.Email, err)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.signedIn(c, http.StatusOK, res)
}

// JWKS godoc
// @Summary Public signing keys
// @Tags auth
// @Produce json
// @Success 200 {object} security.JWKSet
// @Router /.well-known/jwks.json [get]
func (h *Handler) JWKS(c *gin.Context) {
	if h.Keys == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tokens are not signed with published keys"})
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, h.Keys.JWKS())
}

func (h *Handler) Healthz(c *gin.Context) {
	status := gin.H{}
	healthy := true
	for name, check := range h.Checks {
		if err := check(c.Request.Context()); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": status})
}
