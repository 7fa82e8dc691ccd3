package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Market    MarketConfig    `koanf:"market"`
	Telegram  TelegramConfig  `koanf:"telegram"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Security  SecurityConfig  `koanf:"security"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MinIdleConns    int           `koanf:"min_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL      string `koanf:"url"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// MarketConfig holds every tunable of the auction marketplace.
type MarketConfig struct {
	Enabled             bool          `koanf:"enabled"`
	DefaultDuration     time.Duration `koanf:"default_duration"`
	SoftClose           time.Duration `koanf:"soft_close"`
	MinIncrementPercent int64         `koanf:"min_increment_percent"`
	MinIncrementAbs     int64         `koanf:"min_increment_abs"`
	MaxActivePerUser    int           `koanf:"max_active_per_user"`
	FeePercent          int64         `koanf:"fee_percent"`
	PageSize            int           `koanf:"page_size"`
	SweepInterval       time.Duration `koanf:"sweep_interval"`
	BidRateLimit        int           `koanf:"bid_rate_limit"`
	BidRateWindow       time.Duration `koanf:"bid_rate_window"`
}

type TelegramConfig struct {
	Enabled bool          `koanf:"enabled"`
	Token   string        `koanf:"token"`
	APIBase string        `koanf:"api_base"`
	Timeout time.Duration `koanf:"timeout"`
}

type TelemetryConfig struct {
	Enabled      bool          `koanf:"enabled"`
	OTLPEndpoint string        `koanf:"otlp_endpoint"`
	SamplingRate float64       `koanf:"sampling_rate"`
	BatchTimeout time.Duration `koanf:"batch_timeout"`
}

type SecurityConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
}

// Load reads configuration from defaults, an optional YAML file, and
// PAB_-prefixed environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MinIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			URL: "localhost:6379",
		},
		Market: MarketConfig{
			Enabled:             true,
			DefaultDuration:     time.Hour,
			SoftClose:           60 * time.Second,
			MinIncrementPercent: 5,
			MinIncrementAbs:     1,
			MaxActivePerUser:    5,
			FeePercent:          5,
			PageSize:            20,
			SweepInterval:       60 * time.Second,
			BidRateLimit:        100,
			BidRateWindow:       5 * time.Minute,
		},
		Telegram: TelegramConfig{
			APIBase: "https://api.telegram.org",
			Timeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			SamplingRate: 0.1,
			BatchTimeout: 5 * time.Second,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = "configs/config.yaml"
	}
	// Config file is optional.
	_ = k.Load(file.Provider(path), yaml.Parser())

	if err := k.Load(env.Provider("PAB_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "PAB_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
