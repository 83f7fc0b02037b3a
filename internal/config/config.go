package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port       string `env:"APP_PORT" envDefault:"8080"`
	Production bool   `env:"APP_PRODUCTION" envDefault:"false"`
	PublicURL  string `env:"APP_PUBLIC_URL" envDefault:"http://localhost:8080"`

	// "mongo" or "memory"
	StoreBackend string `env:"STORE_BACKEND" envDefault:"mongo"`
	MongoURI     string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB      string `env:"MONGO_DB" envDefault:"identity_db"`

	JWTSecret         string        `env:"JWT_SECRET" envDefault:"default_secret_key"`
	JWTPrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH"`
	JWTKeyID          string        `env:"JWT_KEY_ID" envDefault:"primary"`
	JWTNextKeyPath    string        `env:"JWT_NEXT_KEY_PATH"`
	JWTNextKeyID      string        `env:"JWT_NEXT_KEY_ID"`
	JWTTTL            time.Duration `env:"JWT_TTL" envDefault:"24h"`

	SessionCookie string        `env:"SESSION_COOKIE" envDefault:"sid"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"336h"`
	CookieSecure  bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`

	PasswordCost  int           `env:"PASSWORD_COST" envDefault:"12"`
	HashWorkers   int           `env:"HASH_WORKERS" envDefault:"0"` // 0 = runtime.NumCPU()
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`

	// empty RedisAddr switches revocations and rate limits to in-process state
	RedisAddr       string `env:"REDIS_ADDR"`
	RateLimitPerMin int    `env:"RATE_LIMIT_PER_MIN" envDefault:"20"`

	// empty RabbitURL disables event publishing
	RabbitURL      string `env:"RABBIT_URL"`
	RabbitExchange string `env:"RABBIT_EXCHANGE" envDefault:"auth.events"`

	FacebookClientID     string `env:"FACEBOOK_ID"`
	FacebookClientSecret string `env:"FACEBOOK_SECRET"`
	FacebookRedirectURL  string `env:"FACEBOOK_REDIRECT_URL" envDefault:"http://localhost:8080/auth/facebook/callback"`
	OAuthStateSecret     string `env:"OAUTH_STATE_SECRET" envDefault:"default_state_secret"`
	FacebookGraphURL     string `env:"FACEBOOK_GRAPH_URL" envDefault:"https://graph.facebook.com/v19.0"`

	// cmd/mailer
	MailerQueue   string `env:"MAILER_QUEUE" envDefault:"auth.mailer"`
	MailerWorkers int    `env:"MAILER_WORKERS" envDefault:"4"`
	SMTPAddr      string `env:"SMTP_ADDR"` // empty logs mail instead of sending
	SMTPUser      string `env:"SMTP_USER"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`
	MailFrom      string `env:"MAIL_FROM" envDefault:"no-reply@localhost"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return cfg
}

func (c *Config) FacebookEnabled() bool {
	return c.FacebookClientID != "" && c.FacebookClientSecret != ""
}
