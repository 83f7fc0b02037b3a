package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"

	_ "github.com/tazhibayda/identity-service/docs"
	"github.com/tazhibayda/identity-service/internal/domain"
	"github.com/tazhibayda/identity-service/internal/metrics"
)

func NewRouter(h *Handler, limiter Limiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gintrace.Middleware("identity-service"))
	r.Use(RequestID())
	r.Use(Logger(h.Log))
	r.Use(metrics.Middleware())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/.well-known/jwks.json", h.JWKS)

	api := r.Group("/api", h.Authenticate())
	{
		limited := api.Group("", h.RateLimit(limiter))
		limited.POST("/signup", h.Signup)
		limited.POST("/login", h.Login)
		limited.POST("/forgot", h.Forgot)
		limited.POST("/reset/:token", h.Reset)

		api.GET("/logout", h.Logout)
		api.POST("/logout", h.Logout)

		authed := api.Group("", RequireAuth())
		authed.GET("/me", h.Me)
		authed.GET("/users", h.Users)
		authed.GET("/user/:id", h.User)
		authed.POST("/account/password", h.ChangePassword)

		authed.GET("/facebook", RequireProvider(""), h.FacebookProfile())
		fb := authed.Group("", RequireProvider(domain.ProviderFacebook))
		fb.GET("/albums/:id", h.Albums())
		fb.GET("/album/:id/:album_id", h.Album())
		fb.GET("/photo/:id/:photo_id", h.Photo())
	}

	oauth := r.Group("/auth", h.RateLimit(limiter))
	oauth.GET("/facebook", h.FacebookStart)
	oauth.GET("/facebook/callback", h.FacebookCallback)

	return r
}
