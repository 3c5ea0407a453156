package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Transport TransportConfig `mapstructure:"transport"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"` // e.g., "local", "prod"
}

type FeedConfig struct {
	URL         string        `mapstructure:"url"` // base URL, RawPath is appended
	Interval    time.Duration `mapstructure:"interval"`
	CatalogPath string        `mapstructure:"catalog_path"` // empty means the built-in catalog
}

// RawPath is the endpoint path snapshots are published and received on.
const RawPath = "raw"

// RawURL joins the configured base URL with RawPath.
func (f FeedConfig) RawURL() string {
	return strings.TrimRight(f.URL, "/") + "/" + RawPath
}

type TransportConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	SocketTimeout  time.Duration `mapstructure:"socket_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxMessageSize int           `mapstructure:"max_message_size"`
	InboundBuffer  int           `mapstructure:"inbound_buffer"`
}

type GatewayConfig struct {
	TLSCert    string `mapstructure:"tls_cert"`
	TLSKey     string `mapstructure:"tls_key"`
	SendBuffer int    `mapstructure:"send_buffer"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type ProcessorConfig struct {
	NumWorkers int `mapstructure:"num_workers"`
}

type LoggerConfig struct {
	Level    string `mapstructure:"level"`    // debug, info, warn, error
	Encoding string `mapstructure:"encoding"` // json or console
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Load .env file into System Environment (if it exists)
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	// 2. Set Defaults
	setDefaults(v)

	// 3. Map dot-notation to underscores (e.g., "feed.url" -> "FEED_URL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Explicitly Bind Env Vars so Unmarshal sees them for nested structs
	for _, key := range v.AllKeys() {
		bindEnv(v, key)
	}

	// 5. Unmarshal into Struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// 6. Basic Validation
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", ":8443")
	v.SetDefault("app.env", "local")

	v.SetDefault("feed.url", "wss://localhost:8443")
	v.SetDefault("feed.interval", 2*time.Second)
	v.SetDefault("feed.catalog_path", "")

	v.SetDefault("transport.connect_timeout", 30*time.Second)
	v.SetDefault("transport.socket_timeout", 60*time.Second)
	v.SetDefault("transport.request_timeout", 60*time.Second)
	v.SetDefault("transport.max_message_size", 1_000_000)
	v.SetDefault("transport.inbound_buffer", 100)

	v.SetDefault("gateway.tls_cert", "")
	v.SetDefault("gateway.tls_key", "")
	v.SetDefault("gateway.send_buffer", 256)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "price_ticks")
	v.SetDefault("kafka.group_id", "quote-processor-group")

	v.SetDefault("processor.num_workers", 4)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if _, err := url.Parse(c.Feed.URL); err != nil || c.Feed.URL == "" {
		return fmt.Errorf("feed url %q is not a valid url", c.Feed.URL)
	}
	if c.Feed.Interval <= 0 {
		return fmt.Errorf("feed interval must be positive, got %s", c.Feed.Interval)
	}
	if c.Transport.MaxMessageSize <= 0 {
		return fmt.Errorf("transport max_message_size must be positive")
	}
	if c.Transport.InboundBuffer <= 0 {
		return fmt.Errorf("transport inbound_buffer must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers cannot be empty")
	}
	if c.Processor.NumWorkers <= 0 {
		return fmt.Errorf("processor num_workers must be positive")
	}
	if (c.Gateway.TLSCert == "") != (c.Gateway.TLSKey == "") {
		return fmt.Errorf("gateway tls_cert and tls_key must be set together")
	}
	return nil
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
