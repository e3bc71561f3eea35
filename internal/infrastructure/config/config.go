package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all bridge configuration.
type Config struct {
	Server    ServerConfig
	Bridge    BridgeConfig
	History   HistoryConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP/WebSocket listener configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8765"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// BridgeConfig holds command bridge tuning.
type BridgeConfig struct {
	// CallTimeout is the default deadline attached to a command when the
	// caller does not supply one.
	CallTimeout time.Duration `envconfig:"BRIDGE_CALL_TIMEOUT" default:"30s"`
	// HandshakeTimeout bounds how long a fresh connection may take to send
	// its hello frame before being dropped.
	HandshakeTimeout time.Duration `envconfig:"BRIDGE_HANDSHAKE_TIMEOUT" default:"5s"`
	// WriteTimeout bounds a single frame write to the extension socket.
	WriteTimeout time.Duration `envconfig:"BRIDGE_WRITE_TIMEOUT" default:"10s"`
	// PongTimeout is the read deadline; the extension must answer pings
	// within it or the connection is considered dead.
	PongTimeout time.Duration `envconfig:"BRIDGE_PONG_TIMEOUT" default:"90s"`
	// PingInterval is how often keepalive pings are sent.
	PingInterval time.Duration `envconfig:"BRIDGE_PING_INTERVAL" default:"45s"`
	// MaxFrameBytes caps an inbound frame. Screenshots are large.
	MaxFrameBytes int64 `envconfig:"BRIDGE_MAX_FRAME_BYTES" default:"16777216"`
}

// HistoryConfig holds the external history/interest store collaborator.
type HistoryConfig struct {
	BaseURL string        `envconfig:"HISTORY_STORE_URL" default:"http://localhost:8090"`
	Timeout time.Duration `envconfig:"HISTORY_TIMEOUT" default:"15s"`
	Enabled bool          `envconfig:"HISTORY_ENABLED" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
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

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8765",
			Host: "0.0.0.0",
		},
		Bridge: BridgeConfig{
			CallTimeout:      30 * time.Second,
			HandshakeTimeout: 5 * time.Second,
			WriteTimeout:     10 * time.Second,
			PongTimeout:      90 * time.Second,
			PingInterval:     45 * time.Second,
			MaxFrameBytes:    16 << 20,
		},
		History: HistoryConfig{
			BaseURL: "http://localhost:8090",
			Timeout: 15 * time.Second,
			Enabled: true,
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
