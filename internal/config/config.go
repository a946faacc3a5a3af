package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Forward ForwardConfig `yaml:"forward" mapstructure:"forward"`
	Relay   RelayConfig   `yaml:"relay" mapstructure:"relay"`
	Record  RecordConfig  `yaml:"record" mapstructure:"record"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the MCP server exposing add_feedback
type ServerConfig struct {
	Name      string `yaml:"name" mapstructure:"name"`
	Host      string `yaml:"host" mapstructure:"host"`
	Port      int    `yaml:"port" mapstructure:"port"`
	Transport string `yaml:"transport" mapstructure:"transport"` // "http", "stdio"
	Path      string `yaml:"path" mapstructure:"path"`           // HTTP endpoint for streamable MCP
}

// Addr returns host:port for the HTTP transport
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type StorageConfig struct {
	Type string `yaml:"type" mapstructure:"type"` // "json", "bolt", "sqlite", "postgres", "pgx"
	Path string `yaml:"path" mapstructure:"path"` // file path for json, bolt and sqlite
	DSN  string `yaml:"dsn" mapstructure:"dsn"`   // connection string for postgres and pgx
}

type ForwardConfig struct {
	Sinks   []string        `yaml:"sinks" mapstructure:"sinks"` // any of "http", "redis", "kafka"; empty disables forwarding
	Timeout time.Duration   `yaml:"timeout" mapstructure:"timeout"`
	HTTP    HTTPSinkConfig  `yaml:"http" mapstructure:"http"`
	Redis   RedisSinkConfig `yaml:"redis" mapstructure:"redis"`
	Kafka   KafkaSinkConfig `yaml:"kafka" mapstructure:"kafka"`
}

type HTTPSinkConfig struct {
	URL       string  `yaml:"url" mapstructure:"url"`
	Payload   string  `yaml:"payload" mapstructure:"payload"`       // "record" or "text"
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // pushes per second, 0 = unlimited
}

type RedisSinkConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	Channel  string `yaml:"channel" mapstructure:"channel"`
}

type KafkaSinkConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// RelayConfig configures the SSE relay that acts as the HTTP push sink
type RelayConfig struct {
	Addr          string        `yaml:"addr" mapstructure:"addr"`
	AllowedOrigin string        `yaml:"allowed_origin" mapstructure:"allowed_origin"`
	KeepAlive     time.Duration `yaml:"keep_alive" mapstructure:"keep_alive"`
}

type RecordConfig struct {
	Unclassified string `yaml:"unclassified" mapstructure:"unclassified"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:      "feedbackd",
			Host:      "0.0.0.0",
			Port:      10086,
			Transport: "http",
			Path:      "/mcp",
		},
		Storage: StorageConfig{
			Type: "json",
			Path: "feedback_data.json",
		},
		Forward: ForwardConfig{
			Timeout: 2 * time.Second,
			HTTP: HTTPSinkConfig{
				URL:     "http://localhost:3001/push",
				Payload: "record",
			},
			Redis: RedisSinkConfig{
				Addr:    "localhost:6379",
				Channel: "feedback",
			},
			Kafka: KafkaSinkConfig{
				Topic: "feedback",
			},
		},
		Relay: RelayConfig{
			Addr:          ":3001",
			AllowedOrigin: "http://localhost:3000",
			KeepAlive:     15 * time.Second,
		},
		Record: RecordConfig{
			Unclassified: "unclassified",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// setDefaults registers every leaf key so env variables can override nested values
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.name", cfg.Server.Name)
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.transport", cfg.Server.Transport)
	v.SetDefault("server.path", cfg.Server.Path)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.dsn", cfg.Storage.DSN)

	v.SetDefault("forward.sinks", cfg.Forward.Sinks)
	v.SetDefault("forward.timeout", cfg.Forward.Timeout)
	v.SetDefault("forward.http.url", cfg.Forward.HTTP.URL)
	v.SetDefault("forward.http.payload", cfg.Forward.HTTP.Payload)
	v.SetDefault("forward.http.rate_limit", cfg.Forward.HTTP.RateLimit)
	v.SetDefault("forward.redis.addr", cfg.Forward.Redis.Addr)
	v.SetDefault("forward.redis.password", cfg.Forward.Redis.Password)
	v.SetDefault("forward.redis.channel", cfg.Forward.Redis.Channel)
	v.SetDefault("forward.kafka.brokers", cfg.Forward.Kafka.Brokers)
	v.SetDefault("forward.kafka.topic", cfg.Forward.Kafka.Topic)

	v.SetDefault("relay.addr", cfg.Relay.Addr)
	v.SetDefault("relay.allowed_origin", cfg.Relay.AllowedOrigin)
	v.SetDefault("relay.keep_alive", cfg.Relay.KeepAlive)

	v.SetDefault("record.unclassified", cfg.Record.Unclassified)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.json", cfg.Log.JSON)
}

// Load loads configuration from file, .env files and FEEDBACKD_* variables
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	setDefaults(v, cfg)

	// FEEDBACKD_FORWARD_HTTP_URL -> forward.http.url
	v.SetEnvPrefix("FEEDBACKD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("feedbackd")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".feedbackd"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.Storage.Path = expandPath(cfg.Storage.Path)
	cfg.Log.File = expandPath(cfg.Log.File)

	return cfg, nil
}

// applyEnvOverrides applies the unprefixed variables shared with other deployments
func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("PUSH_SINK_URL"); url != "" {
		cfg.Forward.HTTP.URL = url
		if len(cfg.Forward.Sinks) == 0 {
			cfg.Forward.Sinks = []string{"http"}
		}
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.DSN = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Forward.Redis.Addr = addr
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Forward.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
}

// ForwardingEnabled reports whether at least one push sink is configured
func (c *Config) ForwardingEnabled() bool {
	for _, s := range c.Forward.Sinks {
		if s != "" && s != "none" {
			return true
		}
	}
	return false
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("server", c.Server)
	v.Set("storage", c.Storage)
	v.Set("forward", c.Forward)
	v.Set("relay", c.Relay)
	v.Set("record", c.Record)
	v.Set("log", c.Log)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
