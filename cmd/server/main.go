package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/identity-service/internal/auth"
	"github.com/tazhibayda/identity-service/internal/config"
	api "github.com/tazhibayda/identity-service/internal/http"
	applog "github.com/tazhibayda/identity-service/internal/log"
	"github.com/tazhibayda/identity-service/internal/metrics"
	"github.com/tazhibayda/identity-service/internal/oauth"
	"github.com/tazhibayda/identity-service/internal/queue"
	"github.com/tazhibayda/identity-service/internal/repo"
	"github.com/tazhibayda/identity-service/internal/repo/memory"
	"github.com/tazhibayda/identity-service/internal/security"
)

func main() {
	cfg := config.MustLoad()

	logger, err := applog.Init(cfg.Production)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	tracer.Start(tracer.WithService("identity-service"))
	defer tracer.Stop()
	metrics.MustRegister()
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	checks := map[string]func(context.Context) error{}

	var users auth.Store
	var sessions auth.SessionStore
	switch cfg.StoreBackend {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		users, sessions = memory.NewUsers(), memory.NewSessions()
	case "mongo":
		store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			logger.Fatal("mongo connect", zap.Error(err))
		}
		defer func() { _ = store.Close(context.Background()) }()
		if err := store.EnsureIndexes(ctx); err != nil {
			logger.Fatal("ensure indexes", zap.Error(err))
		}
		users, sessions = store.Users(), store.Sessions()
		checks["mongo"] = store.Ping
	default:
		logger.Fatal("unknown STORE_BACKEND", zap.String("backend", cfg.StoreBackend))
	}

	var revoked auth.Denylist = memory.NewDenylist()
	var limiter api.Limiter = memory.NewRateLimiter(cfg.RateLimitPerMin, time.Minute)
	if cfg.RedisAddr != "" {
		rds := repo.NewRedis(cfg.RedisAddr)
		defer func() { _ = rds.Close() }()
		if err := rds.Ping(ctx); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		}
		revoked, limiter = rds, rds.Limiter(cfg.RateLimitPerMin, time.Minute)
		checks["redis"] = rds.Ping
	}

	pub := queue.NewNoop()
	if cfg.RabbitURL != "" {
		p, err := queue.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			logger.Warn("rabbit unavailable, events disabled", zap.Error(err))
		} else {
			pub = p
		}
	}
	defer func() { _ = pub.Close() }()

	if cfg.Production && cfg.JWTPrivateKeyPath == "" && cfg.JWTSecret == "default_secret_key" {
		logger.Fatal("JWT_SECRET must be set in production")
	}
	issuer := security.NewHS256Issuer(cfg.JWTSecret, cfg.JWTTTL)
	var keys *security.KeyManager
	if cfg.JWTPrivateKeyPath != "" {
		keys, err = security.NewKeyManager(cfg.JWTKeyID, cfg.JWTPrivateKeyPath, cfg.JWTNextKeyID, cfg.JWTNextKeyPath)
		if err != nil {
			logger.Fatal("load signing keys", zap.Error(err))
		}
		issuer = security.NewRS256Issuer(keys, cfg.JWTTTL)
	}

	svc := auth.NewService(auth.Deps{
		Store:      users,
		Sessions:   sessions,
		Revoked:    revoked,
		Hasher:     security.NewHasher(cfg.PasswordCost, cfg.HashWorkers),
		Issuer:     issuer,
		Events:     pub,
		Exchange:   cfg.RabbitExchange,
		Logger:     logger,
		SessionTTL: cfg.SessionTTL,
		ResetTTL:   cfg.ResetTokenTTL,
	})

	graph := oauth.NewGraph(cfg.FacebookGraphURL)
	var fb *oauth.Facebook
	if cfg.FacebookEnabled() {
		fb = oauth.NewFacebook(cfg.FacebookClientID, cfg.FacebookClientSecret, cfg.FacebookRedirectURL, cfg.OAuthStateSecret, graph)
	} else {
		logger.Info("facebook login disabled; FACEBOOK_ID/FACEBOOK_SECRET not set")
	}

	h := &api.Handler{
		Auth:     svc,
		Facebook: fb,
		Graph:    graph,
		Keys:     keys,
		Cookie:   api.CookieConfig{Name: cfg.SessionCookie, TTL: cfg.SessionTTL, Secure: cfg.CookieSecure},
		Log:      logger,
		Checks:   checks,
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(h, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe() }()
	logger.Info("identity-service listening", zap.String("port", cfg.Port), zap.String("store", cfg.StoreBackend))

	// SIGHUP promotes the next signing key in RS256 mode.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

wait:
	for {
		select {
		case s := <-sig:
			if s == syscall.SIGHUP {
				rotate(logger, keys)
				continue
			}
			logger.Info("shutting down", zap.String("signal", s.String()))
			break wait
		case err := <-srvErr:
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server error", zap.Error(err))
			}
			break wait
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func rotate(logger *zap.Logger, keys *security.KeyManager) {
	if keys == nil {
		logger.Warn("key rotation requested in HS256 mode; ignored")
		return
	}
	kid, err := keys.Rotate()
	if err != nil {
		logger.Error("rotate signing key", zap.Error(err))
		return
	}
	logger.Info("signing key rotated", zap.String("kid", kid))
}
