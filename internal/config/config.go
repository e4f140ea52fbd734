package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all engine settings, populated from environment variables
// (CHAOS_* prefix) and an optional YAML config file.
type Config struct {
	// Upstream snapshot source.
	SnapshotURL    string        `mapstructure:"snapshot_url"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	FetchRateLimit float64       `mapstructure:"fetch_rate_limit"` // requests per second
	FetchRateBurst int           `mapstructure:"fetch_rate_burst"`

	// Engine timers.
	PerturbInterval     time.Duration `mapstructure:"perturb_interval"`
	AttackSpawnInterval time.Duration `mapstructure:"attack_spawn_interval"`
	LogFeedInterval     time.Duration `mapstructure:"log_feed_interval"`
	FrameInterval       time.Duration `mapstructure:"frame_interval"`
	LogFeedSize         int           `mapstructure:"log_feed_size"`

	// HTTP API.
	HTTPAddr          string        `mapstructure:"http_addr"`
	DashboardCacheTTL time.Duration `mapstructure:"dashboard_cache_ttl"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`

	// Logging.
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Optional Kafka broadcast of scored snapshots.
	KafkaEnabled bool     `mapstructure:"kafka_enabled"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
}

// Load reads configuration from the environment and an optional config file
// (CHAOS_CONFIG_FILE), applying defaults where unset.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("poll_interval", 5*time.Minute)
	v.SetDefault("fetch_timeout", 15*time.Second)
	v.SetDefault("fetch_rate_limit", 1.0)
	v.SetDefault("fetch_rate_burst", 2)
	v.SetDefault("perturb_interval", 280*time.Millisecond)
	v.SetDefault("attack_spawn_interval", 900*time.Millisecond)
	v.SetDefault("log_feed_interval", 2200*time.Millisecond)
	v.SetDefault("frame_interval", 50*time.Millisecond)
	v.SetDefault("log_feed_size", 30)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("dashboard_cache_ttl", time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("kafka_enabled", false)
	v.SetDefault("kafka_brokers", []string{"localhost:9092"})
	v.SetDefault("kafka_topic", "chaos-snapshots")

	v.SetEnvPrefix("CHAOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Env vars deliver list values as comma-separated strings.
	if len(cfg.KafkaBrokers) == 1 && strings.Contains(cfg.KafkaBrokers[0], ",") {
		cfg.KafkaBrokers = splitBrokers(cfg.KafkaBrokers[0])
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SnapshotURL == "" {
		return errors.New("CHAOS_SNAPSHOT_URL is required")
	}
	for name, d := range map[string]time.Duration{
		"poll_interval":         c.PollInterval,
		"fetch_timeout":         c.FetchTimeout,
		"perturb_interval":      c.PerturbInterval,
		"attack_spawn_interval": c.AttackSpawnInterval,
		"log_feed_interval":     c.LogFeedInterval,
		"frame_interval":        c.FrameInterval,
		"shutdown_timeout":      c.ShutdownTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.FetchRateLimit <= 0 {
		return errors.New("fetch_rate_limit must be positive")
	}
	if c.LogFeedSize <= 0 {
		return errors.New("log_feed_size must be positive")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("kafka_enabled is true but kafka_brokers is empty")
		}
		if c.KafkaTopic == "" {
			return errors.New("kafka_enabled is true but kafka_topic is empty")
		}
	}
	return nil
}

func splitBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
