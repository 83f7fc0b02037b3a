package http

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tazhibayda/identity-service/internal/auth"
	"github.com/tazhibayda/identity-service/internal/domain"
	applog "github.com/tazhibayda/identity-service/internal/log"
	"github.com/tazhibayda/identity-service/internal/metrics"
)

const (
	requestIDHeader = "X-Request-ID"
	principalKey    = "principal"
)

// Limiter is satisfied by the Redis and in-memory rate limiters.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RequestID propagates X-Request-ID, generating one when absent, into the
// response header and the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(applog.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func Logger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		applog.From(c.Request.Context(), base).Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// Authenticate resolves the request's principal from the bearer token or the
// session cookie. Requests without valid credentials continue anonymously.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var bearer string
		if hdr := c.GetHeader("Authorization"); strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
			bearer = strings.TrimSpace(hdr[len("Bearer "):])
		}
		sid, _ := c.Cookie(h.Cookie.Name)

		p, err := h.Auth.ResolvePrincipal(c.Request.Context(), sid, bearer)
		if err != nil {
			h.fail(c, err)
			return
		}
		if p != nil {
			c.Set(principalKey, p)
		}
		c.Next()
	}
}

func principal(c *gin.Context) *auth.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*auth.Principal)
	return p
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if d := auth.CheckAuthenticated(principal(c)); !d.Allowed {
			deny(c, d)
			return
		}
		c.Next()
	}
}

// RequireProvider admits principals holding a token for provider. An empty
// provider is taken from the last segment of the request path.
func RequireProvider(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := provider
		if name == "" {
			name = auth.ProviderFromPath(c.Request.URL.Path)
		}
		if d := auth.CheckProvider(principal(c), name); !d.Allowed {
			deny(c, d)
			return
		}
		c.Next()
	}
}

// RateLimit limits requests per client IP and route. Limiter failures let the
// request through.
func (h *Handler) RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		ok, err := l.Allow(c.Request.Context(), c.FullPath()+"|"+c.ClientIP())
		if err != nil {
			applog.From(c.Request.Context(), h.Log).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			metrics.RateLimited.Inc()
			h.fail(c, domain.ErrRateLimited)
			return
		}
		c.Next()
	}
}
