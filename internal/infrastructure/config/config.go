package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/sdui/internal/domain/action"
	"github.com/GriffinCanCode/sdui/internal/domain/tree"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Limits    LimitsConfig
	Policy    PolicyConfig
	Render    RenderConfig
	Templates TemplatesConfig
	Sessions  SessionsConfig
	Webhook   WebhookConfig
	Redis     RedisConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	GinMode         string        `envconfig:"GIN_MODE" default:"release"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string { return s.Host + ":" + s.Port }

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds per-IP rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// LimitsConfig holds tree validation limits
type LimitsConfig struct {
	MaxDepth        int `envconfig:"SDUI_MAX_DEPTH" default:"20"`
	MaxNodeCount    int `envconfig:"SDUI_MAX_NODE_COUNT" default:"200"`
	MaxPayloadBytes int `envconfig:"SDUI_MAX_PAYLOAD_BYTES" default:"524288"`
	MaxTextLength   int `envconfig:"SDUI_MAX_TEXT_LENGTH" default:"10000"`
	MaxLogEntries   int `envconfig:"SDUI_MAX_LOG_ENTRIES" default:"50"`
}

// Tree converts to validator limits; out-of-range values become defaults
func (l LimitsConfig) Tree() tree.Limits {
	return tree.Limits{
		MaxDepth:        l.MaxDepth,
		MaxNodeCount:    l.MaxNodeCount,
		MaxPayloadBytes: l.MaxPayloadBytes,
		MaxTextLength:   l.MaxTextLength,
		MaxLogEntries:   l.MaxLogEntries,
	}.Normalize()
}

// PolicyConfig holds the action/navigation allow-list. Empty lists deny.
type PolicyConfig struct {
	AllowedActions       []string `envconfig:"SDUI_ALLOWED_ACTIONS"`
	AllowedRoutes        []string `envconfig:"SDUI_ALLOWED_ROUTES"`
	AllowedRoutePrefixes []string `envconfig:"SDUI_ALLOWED_ROUTE_PREFIXES"`
	File                 string   `envconfig:"SDUI_POLICY_FILE"`
}

// Policy returns the env-configured allow-list entries
func (p PolicyConfig) Policy() action.Policy {
	return action.Policy{
		Actions:       p.AllowedActions,
		Routes:        p.AllowedRoutes,
		RoutePrefixes: p.AllowedRoutePrefixes,
	}
}

// RenderConfig holds renderer settings
type RenderConfig struct {
	DevPlaceholders bool `envconfig:"SDUI_DEV_PLACEHOLDERS" default:"false"`
}

// TemplatesConfig holds template catalog settings
type TemplatesConfig struct {
	Dir string `envconfig:"SDUI_TEMPLATES_DIR"`
}

// SessionsConfig holds playground session settings
type SessionsConfig struct {
	MaxSessions int `envconfig:"SDUI_MAX_SESSIONS" default:"1000"`
}

// WebhookConfig holds event forwarding settings. Disabled when URL is empty.
type WebhookConfig struct {
	URL        string        `envconfig:"SDUI_WEBHOOK_URL"`
	Timeout    time.Duration `envconfig:"SDUI_WEBHOOK_TIMEOUT" default:"5s"`
	RetryCount int           `envconfig:"SDUI_WEBHOOK_RETRIES" default:"2"`
	QueueSize  int           `envconfig:"SDUI_WEBHOOK_QUEUE" default:"256"`
}

// Enabled reports whether forwarding is configured
func (w WebhookConfig) Enabled() bool { return w.URL != "" }

// RedisConfig holds event mirror settings. Disabled when Addr is empty.
type RedisConfig struct {
	Addr      string        `envconfig:"SDUI_REDIS_ADDR"`
	Password  string        `envconfig:"SDUI_REDIS_PASSWORD"`
	DB        int           `envconfig:"SDUI_REDIS_DB" default:"0"`
	KeyPrefix string        `envconfig:"SDUI_REDIS_PREFIX" default:"sdui:events:"`
	TTL       time.Duration `envconfig:"SDUI_REDIS_TTL" default:"24h"`
	QueueSize int           `envconfig:"SDUI_REDIS_QUEUE" default:"256"`
}

// Enabled reports whether mirroring is configured
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// Load loads configuration from environment variables, then merges the
// policy file when SDUI_POLICY_FILE is set
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Policy.File != "" {
		p, err := LoadPolicyFile(cfg.Policy.File)
		if err != nil {
			return nil, err
		}
		cfg.Policy.Merge(p)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration
func Default() *Config {
	limits := tree.DefaultLimits()
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			GinMode:         "release",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Limits: LimitsConfig{
			MaxDepth:        limits.MaxDepth,
			MaxNodeCount:    limits.MaxNodeCount,
			MaxPayloadBytes: limits.MaxPayloadBytes,
			MaxTextLength:   limits.MaxTextLength,
			MaxLogEntries:   limits.MaxLogEntries,
		},
		Sessions: SessionsConfig{MaxSessions: 1000},
		Webhook: WebhookConfig{
			Timeout:    5 * time.Second,
			RetryCount: 2,
			QueueSize:  256,
		},
		Redis: RedisConfig{
			KeyPrefix: "sdui:events:",
			TTL:       24 * time.Hour,
			QueueSize: 256,
		},
	}
}
