package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	CredentialStorePostgres = "postgres"
	CredentialStoreMongo    = "mongo"
)

type Config struct {
	Env  string `env:"APP_ENV" envDefault:"dev"`
	Port int    `env:"PORT" envDefault:"8080"`

	DBURL           string        `env:"DATABASE_URL"`
	DBMaxConns      int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMaxIdleTime   time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	CredentialStore string        `env:"CREDENTIAL_STORE" envDefault:"postgres"`
	MongoURI        string        `env:"MONGODB_URI"`
	MongoDB         string        `env:"MONGODB_DB" envDefault:"taskdeck"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`

	GitHub GitHubConfig `envPrefix:"GITHUB_"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"30s"`

	Minio MinioConfig `envPrefix:"MINIO_"`

	OTLPEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`

	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"20"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`

	SeedEmail    string `env:"SEED_EMAIL"`
	SeedPassword string `env:"SEED_PASSWORD"`
}

type GitHubConfig struct {
	ClientID     string        `env:"CLIENT_ID"`
	ClientSecret string        `env:"CLIENT_SECRET"`
	RedirectURI  string        `env:"REDIRECT_URI"`
	AuthURL      string        `env:"AUTH_URL" envDefault:"https://github.com/login/oauth/authorize"`
	TokenURL     string        `env:"TOKEN_URL" envDefault:"https://github.com/login/oauth/access_token"`
	APIURL       string        `env:"API_URL" envDefault:"https://api.github.com"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type MinioConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"task-files"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

// Load reads a .env file when present and parses the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	cfg.CredentialStore = strings.ToLower(strings.TrimSpace(cfg.CredentialStore))

	return cfg, nil
}

// Validate reports settings the API cannot start without.
func (c Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not defined"))
	}
	if c.DBURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is not defined"))
	}

	switch c.CredentialStore {
	case CredentialStorePostgres:
	case CredentialStoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is not defined"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CREDENTIAL_STORE %q", c.CredentialStore))
	}

	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}

	return errors.Join(errs...)
}

func (c Config) IsDev() bool {
	return c.Env == "dev"
}

// GitHubConfigured is true once both OAuth app credentials are present.
func (c Config) GitHubConfigured() bool {
	return c.GitHub.ClientID != "" && c.GitHub.ClientSecret != ""
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}
