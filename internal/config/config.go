package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config is read from the environment first; command line flags override it
type Config struct {
	Port            int           `env:"PORT" envDefault:"3000"`
	GRPCPort        int           `env:"GRPC_PORT" envDefault:"50051"`
	DatabaseURL     string        `env:"DATABASE_URL" envDefault:"sqlite:data/tracking.db"`
	BaseURL         string        `env:"BASE_URL" envDefault:"http://localhost:3000"`
	RedisAddr       string        `env:"REDIS_ADDR"` // empty disables the record cache
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"1h"`
	RecipientKey    string        `env:"RECIPIENT_KEY"` // empty stores recipients in clear
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"console"` // console | json
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment, then args (without the program name)
func Load(args []string) (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	fs.IntVar(&cfg.GRPCPort, "grpc-port", cfg.GRPCPort, "gRPC health port, 0 disables it")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Database URL (sqlite:<path> or postgres://...)")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Public base URL used in tracking links")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for the record cache")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "Record cache TTL")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (console, json)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port %d", c.GRPCPort)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database url is required")
	}
	if c.RecipientKey != "" && len(c.RecipientKey) != 32 {
		return fmt.Errorf("RECIPIENT_KEY must be 32 bytes, got %d", len(c.RecipientKey))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// Level returns the configured zerolog level
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
