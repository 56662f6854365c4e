package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GOMATCH_SERVER_PORT.
const EnvPrefix = "GOMATCH"

// Config holds all configuration for the service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Patterns PatternsConfig `mapstructure:"patterns"`
	Scan     ScanConfig     `mapstructure:"scan"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PatternsConfig locates the pattern sets compiled at start-up.
type PatternsConfig struct {
	// Dir holds .yaml, .yml and .txt pattern files. Empty disables loading.
	Dir string `mapstructure:"dir"`

	// Persist saves sets created through the API into Dir as <name>.yaml
	// and removes that file when the set is deleted.
	Persist bool `mapstructure:"persist"`
}

// ScanConfig bounds a single scan request.
type ScanConfig struct {
	MaxMatches    int           `mapstructure:"max_matches"`
	MaxInputBytes int64         `mapstructure:"max_input_bytes"`
	Timeout       time.Duration `mapstructure:"timeout"`
	TopK          int           `mapstructure:"top_k"`
}

// Load reads configuration from defaults, the optional file at path and
// GOMATCH_* environment variables, in increasing priority.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("patterns.dir", "")
	v.SetDefault("patterns.persist", false)

	v.SetDefault("scan.max_matches", 10000)
	v.SetDefault("scan.max_input_bytes", 8<<20) // 8MB
	v.SetDefault("scan.timeout", "10s")
	v.SetDefault("scan.top_k", 10)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", c.Log.Format)
	}
	if c.Patterns.Persist && c.Patterns.Dir == "" {
		return fmt.Errorf("patterns.persist requires patterns.dir")
	}
	if c.Scan.MaxMatches < 0 {
		return fmt.Errorf("scan.max_matches cannot be negative: %d", c.Scan.MaxMatches)
	}
	if c.Scan.MaxInputBytes <= 0 {
		return fmt.Errorf("scan.max_input_bytes must be positive: %d", c.Scan.MaxInputBytes)
	}
	if c.Scan.Timeout < 0 {
		return fmt.Errorf("scan.timeout cannot be negative: %s", c.Scan.Timeout)
	}
	if c.Scan.TopK <= 0 {
		return fmt.Errorf("scan.top_k must be positive: %d", c.Scan.TopK)
	}
	return nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
