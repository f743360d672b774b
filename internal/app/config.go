package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/jfs-fashion/storefront/internal/storage/redis"
)

// Cart store backends.
const (
	CartStorePostgres = "postgres"
	CartStoreRedis    = "redis"
)

// Config is the API server configuration, loaded from JFS_-prefixed
// environment variables, flags and YAML files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (JFS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL prepended to relative product image paths" flag:"image-base-url"`
	Cart         CartConfig
	Redis        redis.Config
	Auth         AuthConfig
	Payment      PaymentConfig
	Events       EventsConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// CartConfig selects where carts are persisted.
type CartConfig struct {
	Store string        `default:"postgres" usage:"Cart store backend: postgres or redis"`
	TTL   time.Duration `default:"720h" usage:"Expiry of idle carts in the redis store"`
}

// AuthConfig controls JWT route protection of order and payment routes.
type AuthConfig struct {
	Disabled   bool   `default:"false" usage:"Serve protected routes without a token" flag:"auth-disabled"`
	JWTSecret  string `usage:"HS256 secret; empty checks token expiry only" flag:"jwt-secret"`
	CookieName string `default:"jfs_session" usage:"Session cookie carrying the JWT"`
}

// PaymentConfig configures the payment gateway client.
type PaymentConfig struct {
	BaseURL     string        `usage:"Payment gateway base URL" flag:"payment-base-url"`
	SecretKey   string        `usage:"Payment gateway secret key" flag:"payment-secret-key"`
	CallbackURL string        `usage:"URL the provider redirects to after payment" flag:"payment-callback-url"`
	Timeout     time.Duration `default:"15s" usage:"Payment gateway request timeout"`
}

// EventsConfig configures order event publishing. No brokers disables it.
type EventsConfig struct {
	Brokers      []string      `usage:"Kafka bootstrap brokers"`
	Topic        string        `default:"jfs.orders.placed" usage:"Topic for order placed events"`
	BatchTimeout time.Duration `default:"50ms" usage:"Kafka writer batch timeout"`
	WriteTimeout time.Duration `default:"5s" usage:"Kafka writer write timeout"`
}

// RateLimitConfig controls per-client rate limiting. The limit is shared
// through Redis when Redis is configured.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads and validates the configuration.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "JFS",
		Files:     []string{"config.yaml", "/etc/jfs/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration that cannot start a server.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set JFS_DATABASE_URL or DATABASE_URL")
	}
	if c.Payment.BaseURL == "" {
		return errors.New("payment gateway URL is required: set JFS_PAYMENT_BASE_URL")
	}
	switch c.Cart.Store {
	case CartStorePostgres:
	case CartStoreRedis:
		if !c.Redis.Enabled() {
			return errors.New("redis cart store requires JFS_REDIS_URL, JFS_REDIS_ADDR or REDIS_URL")
		}
	default:
		return errors.Errorf("unknown cart store %q", c.Cart.Store)
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}

// applyPlatformDefaults maps the unprefixed variables set by hosting
// platforms (DATABASE_URL, REDIS_URL, PORT) onto the configuration.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv("DATABASE_URL")
	}
	if !c.Redis.Enabled() {
		c.Redis.URL = getenv("REDIS_URL")
	}
	if port := getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
