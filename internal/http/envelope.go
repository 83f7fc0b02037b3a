package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tazhibayda/identity-service/internal/auth"
	"github.com/tazhibayda/identity-service/internal/domain"
	applog "github.com/tazhibayda/identity-service/internal/log"
)

// Envelope is the body of every auth response. Exactly one of Error or
// User/Token is populated.
type Envelope struct {
	Error   *string          `json:"error"`
	Message string           `json:"message,omitempty"`
	User    *domain.UserView `json:"user"`
	Token   *string          `json:"token"`
	Reauth  string           `json:"reauth,omitempty"`
}

func strPtr(s string) *string { return &s }

func statusOf(k domain.Kind) int {
	switch k {
	case domain.KindValidation, domain.KindPasswordMismatch, domain.KindResetTokenInvalid:
		return http.StatusBadRequest
	case domain.KindInvalidCredentials, domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindProviderUnauthorized, domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindUserNotFound, domain.KindAccountNotFound:
		return http.StatusNotFound
	case domain.KindDuplicateAccount, domain.KindAccountAlreadyLinked:
		return http.StatusConflict
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an error envelope and aborts the chain. Only
// operational failures are logged at error level.
func (h *Handler) fail(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	if domain.Operational(err) {
		applog.From(c.Request.Context(), h.Log).Error("request failed",
			zap.String("path", c.FullPath()), zap.String("kind", string(kind)), zap.Error(err))
	}
	c.AbortWithStatusJSON(statusOf(kind), Envelope{Error: strPtr(string(kind)), Message: domain.MessageOf(err)})
}

// deny writes a gate decision.
func deny(c *gin.Context, d auth.Decision) {
	c.AbortWithStatusJSON(statusOf(d.Kind), Envelope{
		Error:   strPtr(string(d.Kind)),
		Message: d.Reason,
		Reauth:  d.ReauthPath,
	})
}

// signedIn sets the session cookie and writes the user and token.
func (h *Handler) signedIn(c *gin.Context, status int, res *auth.Result) {
	h.setSession(c, res.SessionID)
	c.JSON(status, Envelope{User: res.User.View(), Token: strPtr(res.Token)})
}

func (h *Handler) setSession(c *gin.Context, sid string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.Cookie.Name, sid, int(h.Cookie.TTL.Seconds()), "/", "", h.Cookie.Secure, true)
}

func (h *Handler) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.Cookie.Name, "", -1, "/", "", h.Cookie.Secure, true)
}
