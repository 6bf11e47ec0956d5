package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Providers     ProvidersConfig
	Engine        EngineConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration for the request-log ledger.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over
// individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// AuthConfig holds JWT bearer-token validation configuration
type AuthConfig struct {
	// JWTSecret is the HS256 signing secret shared with the identity layer
	JWTSecret string

	// Issuer is the expected token issuer; empty disables the check
	Issuer string
}

// ProvidersConfig holds generation backend configurations
type ProvidersConfig struct {
	Remote RemoteConfig
	Local  LocalConfig
}

// RemoteConfig holds the managed remote-inference backend configuration
// (an OpenAI-compatible chat completions API)
type RemoteConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// LocalConfig holds the locally hosted inference backend configuration
// (an Ollama-compatible generate API)
type LocalConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// EngineConfig holds routing, streaming, and segmentation tunables
type EngineConfig struct {
	// MaxAttempts bounds the candidate shortlist per request
	MaxAttempts int

	// AttemptTimeout is the per-candidate deadline in the cascade
	AttemptTimeout time.Duration

	// BackoffBase is the base delay for exponential backoff between attempts
	BackoffBase time.Duration

	// AllowReasoning rewards deliberative-capable models; off by default for
	// cost control
	AllowReasoning bool

	// CatalogTTL is the validity window for the model catalog snapshot
	CatalogTTL time.Duration

	// HeartbeatInterval is the SSE keep-alive comment cadence
	HeartbeatInterval time.Duration

	// RetrievalTimeout caps the context-retrieval collaborator
	RetrievalTimeout time.Duration

	// BriefMaxWords tunes the default brief-answer system prompt
	BriefMaxWords int

	// RetrievalMinChars is the minimum context length worth injecting
	RetrievalMinChars int

	// MaxSegmentWords caps a single long-form segment
	MaxSegmentWords int

	// MaxSegments is the hard ceiling on continuation segments
	MaxSegments int

	// SegmentAnchorChars is how much accumulated tail anchors a continuation
	SegmentAnchorChars int

	// LongFormThreshold is the word-count hint above which a request is
	// treated as long-form
	LongFormThreshold int

	// ModerationFailClosed inverts the moderation gate to block on
	// collaborator failure
	ModerationFailClosed bool

	// ModerationModel overrides the default guard model id; empty keeps the
	// built-in default
	ModerationModel string

	// RetrievalURL points at the external context-retrieval collaborator;
	// empty disables retrieval entirely
	RetrievalURL string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env if present (no-op in production containers)
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 0),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(),
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
		},
		Providers: ProvidersConfig{
			Remote: RemoteConfig{
				APIKey:     getEnv("REMOTE_API_KEY", ""),
				BaseURL:    getEnv("REMOTE_BASE_URL", "https://api.together.xyz/v1"),
				Timeout:    getEnvAsDuration("REMOTE_TIMEOUT", 15*time.Second),
				MaxRetries: getEnvAsInt("REMOTE_MAX_RETRIES", 2),
			},
			Local: LocalConfig{
				BaseURL: getEnv("LOCAL_BASE_URL", "http://localhost:11434"),
				Model:   getEnv("LOCAL_MODEL", "llama3.2:7b-instruct-q4_K_M"),
				Timeout: getEnvAsDuration("LOCAL_TIMEOUT", 12*time.Second),
			},
		},
		Engine: EngineConfig{
			MaxAttempts:          getEnvAsInt("ENGINE_MAX_ATTEMPTS", 4),
			AttemptTimeout:       getEnvAsDuration("ENGINE_ATTEMPT_TIMEOUT", 15*time.Second),
			BackoffBase:          getEnvAsDuration("ENGINE_BACKOFF_BASE", 250*time.Millisecond),
			AllowReasoning:       getEnvAsBool("ENGINE_ALLOW_REASONING", false),
			CatalogTTL:           getEnvAsDuration("CATALOG_TTL", 10*time.Minute),
			HeartbeatInterval:    getEnvAsDuration("SSE_HEARTBEAT_INTERVAL", 10*time.Second),
			RetrievalTimeout:     getEnvAsDuration("RETRIEVAL_TIMEOUT", 500*time.Millisecond),
			BriefMaxWords:        getEnvAsInt("BRIEF_MAX_WORDS", 120),
			RetrievalMinChars:    getEnvAsInt("RETRIEVAL_MIN_CHARS", 400),
			MaxSegmentWords:      getEnvAsInt("SEGMENT_MAX_WORDS", 1200),
			MaxSegments:          getEnvAsInt("SEGMENT_MAX_COUNT", 16),
			SegmentAnchorChars:   getEnvAsInt("SEGMENT_ANCHOR_CHARS", 1500),
			LongFormThreshold:    getEnvAsInt("LONGFORM_THRESHOLD_WORDS", 800),
			ModerationFailClosed: getEnvAsBool("MODERATION_FAIL_CLOSED", false),
			ModerationModel:      getEnv("MODERATION_MODEL", ""),
			RetrievalURL:         getEnv("RETRIEVAL_URL", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	// The request-log database is optional; with neither DATABASE_URL nor
	// DB_HOST set the ledger runs without persistence.
	if c.Database.ConnectionString == "" && c.Database.Host != "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required in production")
	}

	// No provider key is NOT an error: the cascade degrades to the echo
	// fallback, so development environments work out of the box.

	if c.Engine.MaxAttempts < 1 {
		return fmt.Errorf("engine max attempts must be at least 1")
	}
	if c.Engine.MaxSegments < 1 {
		return fmt.Errorf("segment max count must be at least 1")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Enabled reports whether a ledger database is configured at all
func (c *DatabaseConfig) Enabled() bool {
	return c.ConnectionString != "" || c.Host != ""
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from
// individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password)
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		if u, err := url.Parse(c.ConnectionString); err == nil {
			if u.User != nil {
				u.User = url.User(u.User.Username())
			}
			return u.Redacted()
		}
		return "DATABASE_URL (unparsed)"
	}
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Database, c.SSLMode)
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// loadDatabaseConfig loads database config, preferring DATABASE_URL
func loadDatabaseConfig() DatabaseConfig {
	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "dev"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "aeonforge"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8787)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8787
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
