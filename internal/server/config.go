package server

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	defaultPort                 = ":8080"
	defaultAllowedOrigin        = "http://localhost:3000"
	defaultMaxMessageSize       = 64 * 1024
	defaultRateLimitBurst       = 20
	defaultRefillInterval       = time.Second
	defaultSendBufferSize       = 256
	defaultAuthTimeout          = 30 * time.Second
	defaultJWTSecret            = "fallback_secret"
	defaultPresenceQueueSize    = 1024
	defaultPresenceWriteTimeout = 5 * time.Second
	defaultActiveUsersInterval  = time.Minute
)

var validate = validator.New()

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration. Every field is read from the
// environment; a .env file in the working directory is loaded first when present.
type Config struct {
	Port                   string        `env:"SERVER_PORT,default=:8080" validate:"required"`
	Origins                string        `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	MaxMessageSize         int64         `env:"MAX_MESSAGE_SIZE,default=65536" validate:"gt=0"`
	RateLimitBurst         int           `env:"RATE_LIMIT_BURST,default=20" validate:"gt=0"`
	RateLimitRefillSeconds int           `env:"RATE_LIMIT_REFILL_INTERVAL,default=1" validate:"gt=0"`
	SendBufferSize         int           `env:"SEND_BUFFER_SIZE,default=256" validate:"gt=0"`
	AuthTimeout            time.Duration `env:"AUTH_TIMEOUT,default=30s" validate:"gt=0"`
	JWTSecret              string        `env:"JWT_SECRET,default=fallback_secret" validate:"required"`
	BadgerPath             string        `env:"BADGER_PATH"`
	PresenceQueueSize      int           `env:"PRESENCE_QUEUE_SIZE,default=1024" validate:"gt=0"`
	PresenceWriteTimeout   time.Duration `env:"PRESENCE_WRITE_TIMEOUT,default=5s" validate:"gt=0"`
	ActiveUsersLogInterval time.Duration `env:"ACTIVE_USERS_LOG_INTERVAL,default=1m" validate:"gt=0"`
	GlobalChatListUpdates  bool          `env:"GLOBAL_CHAT_LIST_UPDATES,default=true"`
	LogLevel               string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := &Config{
		Port:                   defaultPort,
		Origins:                defaultAllowedOrigin,
		MaxMessageSize:         defaultMaxMessageSize,
		RateLimitBurst:         defaultRateLimitBurst,
		RateLimitRefillSeconds: int(defaultRefillInterval / time.Second),
		SendBufferSize:         defaultSendBufferSize,
		AuthTimeout:            defaultAuthTimeout,
		JWTSecret:              defaultJWTSecret,
		PresenceQueueSize:      defaultPresenceQueueSize,
		PresenceWriteTimeout:   defaultPresenceWriteTimeout,
		ActiveUsersLogInterval: defaultActiveUsersInterval,
		GlobalChatListUpdates:  true,
		LogLevel:               "INFO",
	}
	cfg.sanitize()
	return cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Unset variables fall back to their defaults.
func NewConfigFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	cfg.sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the bounds of every setting.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// WithOrigins replaces the allowed origins.
func (c *Config) WithOrigins(origins ...string) *Config {
	c.Origins = strings.Join(origins, ",")
	return c
}

func (c *Config) sanitize() {
	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = defaultRateLimitBurst
	}
	if c.RateLimitRefillSeconds <= 0 {
		c.RateLimitRefillSeconds = int(defaultRefillInterval / time.Second)
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = defaultSendBufferSize
	}
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = defaultAuthTimeout
	}
	if c.PresenceQueueSize <= 0 {
		c.PresenceQueueSize = defaultPresenceQueueSize
	}
	if c.PresenceWriteTimeout <= 0 {
		c.PresenceWriteTimeout = defaultPresenceWriteTimeout
	}
	if c.ActiveUsersLogInterval <= 0 {
		c.ActiveUsersLogInterval = defaultActiveUsersInterval
	}
	c.LogLevel = strings.ToUpper(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
}

// AllowedOrigins returns the configured origins, "*" included.
func (c *Config) AllowedOrigins() []string {
	return parseOrigins(c.Origins)
}

// RateLimit returns the per-connection limiter settings.
func (c *Config) RateLimit() RateLimitConfig {
	return RateLimitConfig{
		Burst:          c.RateLimitBurst,
		RefillInterval: time.Duration(c.RateLimitRefillSeconds) * time.Second,
	}
}

func parseOrigins(origins string) []string {
	if strings.TrimSpace(origins) == "" {
		return nil
	}
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
