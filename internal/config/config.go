package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment
// (after an optional .env file) with defaults from struct tags.
type Config struct {
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	Port        string `env:"PORT" env-default:"8787"`

	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Realtime RealtimeConfig
	Tracing  TracingConfig

	CORSOrigins []string `env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
	// writes per user per minute; 0 disables the limiter
	WriteRateLimit int `env:"WRITE_RATE_LIMIT" env-default:"60"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
	File  string `env:"LOG_FILE" env-default:"server.log"`
}

type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     string `env:"DB_PORT" env-default:"5432"`
	User     string `env:"DB_USER" env-default:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" env-default:"chirp"`
	SSLMode  string `env:"DB_SSLMODE" env-default:"disable"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"50"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
}

// DSN returns DATABASE_URL if set, otherwise builds one from the parts
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Host     string `env:"REDIS_HOST" env-default:"localhost"`
	Port     string `env:"REDIS_PORT" env-default:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	Enabled  bool   `env:"REDIS_ENABLED" env-default:"true"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET" env-required:"true"`
	TokenTTL  time.Duration `env:"JWT_TTL" env-default:"168h"`
}

type RealtimeConfig struct {
	SendBuffer     int           `env:"WS_SEND_BUFFER" env-default:"256"`
	PingInterval   time.Duration `env:"WS_PING_INTERVAL" env-default:"30s"`
	MaxMessageSize int64         `env:"WS_MAX_MESSAGE_SIZE" env-default:"65536"`
}

type TracingConfig struct {
	Enabled      bool    `env:"OTEL_ENABLED" env-default:"false"`
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4318"`
	SamplingRate float64 `env:"OTEL_SAMPLING_RATE" env-default:"0.1"`
	Insecure     bool    `env:"OTEL_INSECURE" env-default:"true"`
}

// IsDevelopment reports whether verbose development behaviour is on
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads .env (if present) then the environment.
// Priority: ENV > .env > defaults (via env-default tags).
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints the tags cannot express
func (c *Config) Validate() error {
	// env-required only checks that the variable is set
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Environment == "production" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if c.Realtime.SendBuffer < 1 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive")
	}
	if c.WriteRateLimit < 0 {
		return fmt.Errorf("WRITE_RATE_LIMIT must not be negative")
	}
	return nil
}
