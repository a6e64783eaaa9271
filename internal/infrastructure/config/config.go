package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Bridge     BridgeConfig
	Captcha    CaptchaConfig
	Resilience ResilienceConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// RedisConfig holds pub/sub bus configuration. An empty URL selects the
// in-process bus, which only works when bridge and workers share a process.
type RedisConfig struct {
	URL           string `envconfig:"REDIS_URL" default:""`
	ChannelPrefix string `envconfig:"REDIS_CHANNEL_PREFIX" default:""`
}

// BridgeConfig holds extension session bridge configuration.
type BridgeConfig struct {
	HeartbeatInterval time.Duration `envconfig:"HEARTBEAT_INTERVAL" default:"30s"`
	HeartbeatTimeout  time.Duration `envconfig:"HEARTBEAT_TIMEOUT" default:"60s"`
	MaxMessageBytes   int64         `envconfig:"WS_MAX_MESSAGE_BYTES" default:"1048576"`
	AllowedOrigins    []string      `envconfig:"WS_ALLOWED_ORIGINS" default:"*"`
	MessagesPerSecond float64       `envconfig:"WS_MESSAGES_PER_SECOND" default:"50"`
	MessageBurst      int           `envconfig:"WS_MESSAGE_BURST" default:"100"`
}

// CaptchaConfig holds CAPTCHA resolution configuration.
type CaptchaConfig struct {
	Provider         string        `envconfig:"CAPTCHA_PROVIDER" default:"manual"`
	APIKey           string        `envconfig:"CAPTCHA_API_KEY" default:""`
	FallbackToManual bool          `envconfig:"CAPTCHA_FALLBACK_MANUAL" default:"true"`
	PollInterval     time.Duration `envconfig:"CAPTCHA_POLL_INTERVAL" default:"5s"`
	ProviderTimeout  time.Duration `envconfig:"CAPTCHA_PROVIDER_TIMEOUT" default:"120s"`
	ManualTimeout    time.Duration `envconfig:"CAPTCHA_MANUAL_TIMEOUT" default:"300s"`
	BaseURL          string        `envconfig:"CAPTCHA_BASE_URL" default:""`
}

// ResilienceConfig holds the default per-call-site resilience policy.
type ResilienceConfig struct {
	FailFastTimeout time.Duration `envconfig:"FAIL_FAST_TIMEOUT" default:"3s"`
	MaxRetries      int           `envconfig:"MAX_RETRIES" default:"2"`
	RetryBackoff    time.Duration `envconfig:"RETRY_BACKOFF" default:"500ms"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds HTTP rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.Bridge.HeartbeatInterval <= 0 {
		return fmt.Errorf("invalid config: HEARTBEAT_INTERVAL must be positive")
	}
	if c.Bridge.HeartbeatTimeout < c.Bridge.HeartbeatInterval {
		return fmt.Errorf("invalid config: HEARTBEAT_TIMEOUT (%s) must not be shorter than HEARTBEAT_INTERVAL (%s)",
			c.Bridge.HeartbeatTimeout, c.Bridge.HeartbeatInterval)
	}
	switch c.Captcha.Provider {
	case "2captcha", "anticaptcha", "capmonster", "manual":
	default:
		return fmt.Errorf("invalid config: unknown CAPTCHA_PROVIDER %q", c.Captcha.Provider)
	}
	if c.Resilience.MaxRetries < 0 {
		return fmt.Errorf("invalid config: MAX_RETRIES cannot be negative")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Redis: RedisConfig{},
		Bridge: BridgeConfig{
			HeartbeatInterval: 30 * time.Second,
			HeartbeatTimeout:  60 * time.Second,
			MaxMessageBytes:   1 << 20,
			AllowedOrigins:    []string{"*"},
			MessagesPerSecond: 50,
			MessageBurst:      100,
		},
		Captcha: CaptchaConfig{
			Provider:         "manual",
			FallbackToManual: true,
			PollInterval:     5 * time.Second,
			ProviderTimeout:  120 * time.Second,
			ManualTimeout:    300 * time.Second,
		},
		Resilience: ResilienceConfig{
			FailFastTimeout: 3 * time.Second,
			MaxRetries:      2,
			RetryBackoff:    500 * time.Millisecond,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
