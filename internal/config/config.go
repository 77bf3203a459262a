package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	FrontendURL string `toml:"frontend_url"`
	// allowed CORS origins, exact match
	AllowedOrigins []string `toml:"allowed_origins"`
	CookieSecure   bool     `toml:"cookie_secure"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresUser   string `toml:"postgres_user"`
	PostgresDBName string `toml:"postgres_db_name"`
	RunMigrations  bool   `toml:"run_migrations"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// upstream (strava)
	StravaAPIBaseURL     string `toml:"strava_api_base_url"`
	StravaOAuthBaseURL   string `toml:"strava_oauth_base_url"`
	StravaTimeoutSeconds int    `toml:"strava_timeout_seconds"`

	// text generation
	AIProvider       string `toml:"ai_provider"`
	AIModel          string `toml:"ai_model"`
	AIBaseURL        string `toml:"ai_base_url"`
	AITimeoutSeconds int    `toml:"ai_timeout_seconds"`

	// events
	KafkaBrokers []string `toml:"kafka_brokers"`
	KafkaTopic   string   `toml:"kafka_topic"`

	// rate limiting, requests per minute per client ip
	AuthRateLimitAllowedPerMin    int `toml:"auth_rate_limit_allowed_per_min"`
	InsightRateLimitAllowedPerMin int `toml:"insight_rate_limit_allowed_per_min"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] missing", env)
	}
	cfg.setDefaults()
	return cfg, nil
}

func Load(env, path string) (*Config, error) {
	var tomlConfig Toml
	if _, err := toml.DecodeFile(path, &tomlConfig); err != nil {
		return nil, fmt.Errorf("decode toml config: %w", err)
	}
	return tomlConfig.Get(env)
}

func (c *Config) setDefaults() {
	if c.FrontendURL == "" {
		c.FrontendURL = "http://localhost:3000"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:3001",
		}
	}
	if c.PostgresUser == "" {
		c.PostgresUser = "postgres"
	}
	if c.StravaAPIBaseURL == "" {
		c.StravaAPIBaseURL = "https://www.strava.com/api/v3"
	}
	if c.StravaOAuthBaseURL == "" {
		c.StravaOAuthBaseURL = "https://www.strava.com/oauth"
	}
	if c.StravaTimeoutSeconds <= 0 {
		c.StravaTimeoutSeconds = 30
	}
	if c.AIProvider == "" {
		c.AIProvider = "openai"
	}
	if c.AIModel == "" {
		c.AIModel = "gpt-4o-mini"
	}
	if c.AITimeoutSeconds <= 0 {
		c.AITimeoutSeconds = 45
	}
	if c.KafkaTopic == "" {
		c.KafkaTopic = "activity-events"
	}
	if c.AuthRateLimitAllowedPerMin <= 0 {
		c.AuthRateLimitAllowedPerMin = 30
	}
	if c.InsightRateLimitAllowedPerMin <= 0 {
		c.InsightRateLimitAllowedPerMin = 20
	}
}

// Secrets are never kept in the toml file, only in the environment
type Secrets struct {
	StravaClientID     string `env:"STRAVA_CLIENT_ID"`
	StravaClientSecret string `env:"STRAVA_CLIENT_SECRET"`
	StravaRedirectURI  string `env:"STRAVA_REDIRECT_URI"`
	EncryptionKey      string `env:"ENCRYPTION_KEY"`
	JWTSecret          string `env:"JWT_SECRET"`
	SessionSecret      string `env:"SESSION_SECRET"`
	OpenAIApiKey       string `env:"OPENAI_API_KEY"`
	GeminiApiKey       string `env:"GEMINI_API_KEY"`
	RedisPassword      string `env:"REDIS_PASS"`
	PostgresPassword   string `env:"POSTGRES_PASS"`
	SentryDSN          string `env:"SENTRY_DSN"`
	HoneycombEnabled   bool   `env:"HONEYCOMB_ENABLED, default=false"`
	HoneycombApiKey    string `env:"HONEYCOMB_API_KEY"`
}

var ErrMissingSecret = errors.New("missing required secret")

func LoadSecrets(ctx context.Context, lookuper envconfig.Lookuper) (*Secrets, error) {
	var secrets Secrets
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &secrets,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env secrets: %w", err)
	}

	if secrets.EncryptionKey == "" {
		return nil, fmt.Errorf("%w: ENCRYPTION_KEY", ErrMissingSecret)
	}
	if secrets.JWTSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET", ErrMissingSecret)
	}
	if secrets.SessionSecret == "" {
		// cookie session signing falls back to the jwt secret
		secrets.SessionSecret = secrets.JWTSecret
	}

	return &secrets, nil
}

// AIApiKey returns the key matching the configured provider
func (s *Secrets) AIApiKey(provider string) string {
	if strings.EqualFold(provider, "google") {
		return s.GeminiApiKey
	}
	return s.OpenAIApiKey
}
