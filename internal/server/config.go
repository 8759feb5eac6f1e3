// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the roomchat service.
package server

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/transport"
)

const (
	defaultTCPAddr         = ":4000"
	defaultHTTPAddr        = ":8080"
	defaultMaxSessions     = 1024
	defaultMaxNameLength   = 32
	defaultBurst           = 5
	defaultRefillInterval  = time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "INFO"
)

// RateLimitConfig defines the parameters for per-session chat rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server settings, read from the environment.
type Config struct {
	TCPAddr         string        `env:"TCP_ADDR,default=:4000" validate:"required"`
	HTTPAddr        string        `env:"HTTP_ADDR,default=:8080"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS,default=http://localhost:8080"`
	MaxLineLength   int           `env:"MAX_LINE_LENGTH,default=4096" validate:"min=1,max=1048576"`
	MaxSessions     int           `env:"MAX_SESSIONS,default=1024" validate:"min=0"`
	ChannelCapacity int           `env:"CHANNEL_CAPACITY,default=32" validate:"min=1,max=65536"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST,default=5" validate:"min=1"`
	RateLimitRefill time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL,default=1s"`
	MaxNameLength   int           `env:"MAX_NAME_LENGTH,default=32" validate:"min=1,max=256"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	HelpFile        string        `env:"HELP_FILE"`
	CensoredWords   string        `env:"CENSORED_WORDS"`
	CensorCharacter string        `env:"CENSOR_CHARACTER,default=*" validate:"omitempty,len=1"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisDB         int           `env:"REDIS_DB,default=0" validate:"min=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

var validate = validator.New()

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

func defaultConfig() Config {
	return Config{
		TCPAddr:         defaultTCPAddr,
		HTTPAddr:        defaultHTTPAddr,
		AllowedOrigins:  "http://localhost:8080",
		MaxLineLength:   transport.DefaultMaxLineLength,
		MaxSessions:     defaultMaxSessions,
		ChannelCapacity: chat.DefaultCapacity,
		RateLimitBurst:  defaultBurst,
		RateLimitRefill: defaultRefillInterval,
		MaxNameLength:   defaultMaxNameLength,
		LogLevel:        defaultLogLevel,
		CensorCharacter: "*",
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// LoadConfig reads the environment, fills unset values with defaults and
// validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	cfg = sanitizeConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// sanitizeConfig replaces zero and negative values with defaults. The HTTP
// address is left alone so it can be disabled with an empty value.
func sanitizeConfig(cfg Config) Config {
	if cfg.TCPAddr == "" {
		cfg.TCPAddr = defaultTCPAddr
	}
	if cfg.MaxLineLength <= 0 {
		cfg.MaxLineLength = transport.DefaultMaxLineLength
	}
	if cfg.MaxSessions < 0 {
		cfg.MaxSessions = defaultMaxSessions
	}
	if cfg.ChannelCapacity <= 0 {
		cfg.ChannelCapacity = chat.DefaultCapacity
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = defaultBurst
	}
	if cfg.RateLimitRefill <= 0 {
		cfg.RateLimitRefill = defaultRefillInterval
	}
	if cfg.MaxNameLength <= 0 {
		cfg.MaxNameLength = defaultMaxNameLength
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	cfg.LogLevel = strings.ToUpper(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	return cfg
}

// RateLimit returns the per-session limiter settings.
func (c Config) RateLimit() RateLimitConfig {
	return RateLimitConfig{Burst: c.RateLimitBurst, RefillInterval: c.RateLimitRefill}
}

// Origins returns the comma separated ALLOWED_ORIGINS entries.
func (c Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

// CensorList returns the comma separated CENSORED_WORDS entries.
func (c Config) CensorList() []string {
	return splitList(c.CensoredWords)
}

// CensorRune returns the replacement rune for censored words, or 0 for the
// default.
func (c Config) CensorRune() rune {
	r, _ := utf8.DecodeRuneInString(c.CensorCharacter)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

func splitList(value string) []string {
	return lo.FilterMap(strings.Split(value, ","), func(part string, _ int) (string, bool) {
		part = strings.TrimSpace(part)
		return part, part != ""
	})
}
