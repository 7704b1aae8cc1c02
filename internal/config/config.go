package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Clone match strategies accepted by CLONE_MATCH_STRATEGY.
const (
	MatchEquality    = "equality"
	MatchContainment = "containment"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"copycat-api"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Airtable Airtable
	Clones   Clones
	Redis    Redis
	Postgres Postgres
	Security Security
	AI       AI
	CORS     CORS
}

// Airtable captures credentials and table identifiers for the tabular backend.
type Airtable struct {
	APIKey            string        `env:"AIRTABLE_API_KEY,notEmpty"`
	BaseID            string        `env:"BASE_ID,notEmpty"`
	BaseURL           string        `env:"AIRTABLE_BASE_URL" envDefault:"https://api.airtable.com/v0"`
	QuestionsTable    string        `env:"QUESTIONS_TABLE" envDefault:"Questions"`
	ClonesTable       string        `env:"CLONES_TABLE" envDefault:"CopyCats"`
	RequestsPerSecond float64       `env:"AIRTABLE_REQUESTS_PER_SECOND" envDefault:"5"`
	Timeout           time.Duration `env:"AIRTABLE_TIMEOUT" envDefault:"10s"`
}

// Clones selects how clone rows are matched to their original question.
type Clones struct {
	MatchStrategy string `env:"CLONE_MATCH_STRATEGY" envDefault:"equality"`
}

// Redis holds read-cache configuration. An empty Addr disables caching.
type Redis struct {
	Addr         string        `env:"REDIS_ADDR" envDefault:""`
	DB           int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	TTL          time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	WarmInterval time.Duration `env:"CACHE_WARM_INTERVAL" envDefault:"4m"`
}

// Postgres captures connection info for the generation log. An empty Host disables it.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:""`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:""`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:""`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Security stores secrets for admin tokens.
type Security struct {
	AdminJWTSecret string        `env:"ADMIN_JWT_SECRET" envDefault:""`
	AdminTokenTTL  time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"720h"`
}

// AI configures the LLM providers used for clones, hints and explanations.
type AI struct {
	OpenAIKey       string        `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL   string        `env:"OPENAI_BASE_URL" envDefault:""`
	CloneModel      string        `env:"CLONE_MODEL" envDefault:"gpt-4o"`
	HintModel       string        `env:"HINT_MODEL" envDefault:"gpt-4-turbo-preview"`
	DeepSeekKey     string        `env:"DEEPSEEK_API_KEY" envDefault:""`
	DeepSeekBaseURL string        `env:"DEEPSEEK_BASE_URL" envDefault:"https://api.deepseek.com/v1"`
	DeepSeekModel   string        `env:"DEEPSEEK_MODEL" envDefault:"deepseek-chat"`
	AnthropicKey    string        `env:"ANTHROPIC_API_KEY" envDefault:""`
	AnthropicURL    string        `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com/v1/"`
	AnthropicModel  string        `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-sonnet-latest"`
	HTTPTimeout     time.Duration `env:"AI_HTTP_TIMEOUT" envDefault:"30s"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	AllowedMethods []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints the env tags cannot express.
func (c *App) Validate() error {
	switch c.Clones.MatchStrategy {
	case MatchEquality, MatchContainment:
	default:
		return fmt.Errorf("CLONE_MATCH_STRATEGY must be %q or %q, got %q", MatchEquality, MatchContainment, c.Clones.MatchStrategy)
	}
	if c.Airtable.RequestsPerSecond <= 0 {
		return fmt.Errorf("AIRTABLE_REQUESTS_PER_SECOND must be positive")
	}
	if c.Postgres.Host != "" && (c.Postgres.User == "" || c.Postgres.Database == "") {
		return fmt.Errorf("PG_USER and PG_DATABASE must be set when PG_HOST is configured")
	}
	return nil
}

// DSN renders the keyword/value connection string for pgx.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}
