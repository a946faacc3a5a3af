package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rohankatakam/feedbackd/internal/errors"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextServe - serve needs storage, server and forward settings
	ValidationContextServe ValidationContext = "serve"
	// ValidationContextRelay - relay needs relay settings and a readable log location
	ValidationContextRelay ValidationContext = "relay"
	// ValidationContextList - list only needs storage
	ValidationContextList ValidationContext = "list"
	// ValidationContextAll - validate all configuration
	ValidationContextAll ValidationContext = "all"
)

var (
	storageTypes = map[string]bool{"memory": true, "json": true, "bolt": true, "sqlite": true, "postgres": true, "pgx": true}
	sinkTypes    = map[string]bool{"none": true, "http": true, "redis": true, "kafka": true}
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nwarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	return sb.String()
}

// Err returns a config error when validation failed, nil otherwise
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ConfigError(strings.TrimSpace(vr.Error()))
}

// Validate validates configuration for the given context
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextServe:
		c.validateServer(result)
		c.validateStorage(result)
		c.validateForward(result)
		c.validateRecord(result)
	case ValidationContextRelay:
		c.validateRelay(result)
		c.validateStorage(result)
	case ValidationContextList:
		c.validateStorage(result)
	case ValidationContextAll:
		c.validateServer(result)
		c.validateStorage(result)
		c.validateForward(result)
		c.validateRelay(result)
		c.validateRecord(result)
	}

	return result
}

func (c *Config) validateServer(result *ValidationResult) {
	switch c.Server.Transport {
	case "stdio":
	case "http":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			result.AddError("server.port %d is out of range [1-65535]", c.Server.Port)
		}
		if !strings.HasPrefix(c.Server.Path, "/") {
			result.AddError("server.path must start with '/', got %q", c.Server.Path)
		}
	default:
		result.AddError("server.transport must be 'http' or 'stdio', got %q", c.Server.Transport)
	}
}

func (c *Config) validateStorage(result *ValidationResult) {
	if !storageTypes[c.Storage.Type] {
		result.AddError("storage.type %q is not supported (json, bolt, sqlite, postgres, pgx, memory)", c.Storage.Type)
		return
	}

	switch c.Storage.Type {
	case "memory":
	case "postgres", "pgx":
		if c.Storage.DSN == "" {
			result.AddError("storage.dsn is required for storage type %s (or set POSTGRES_DSN)", c.Storage.Type)
		}
	default:
		if c.Storage.Path == "" {
			result.AddError("storage.path is required for storage type %s", c.Storage.Type)
		}
	}
}

func (c *Config) validateForward(result *ValidationResult) {
	if c.ForwardingEnabled() && c.Forward.Timeout <= 0 {
		result.AddError("forward.timeout must be positive, got %s", c.Forward.Timeout)
	} else if c.Forward.Timeout > 5*time.Second {
		result.AddWarning("forward.timeout %s is long; forwarding is best-effort and should fail fast", c.Forward.Timeout)
	}

	for _, sink := range c.Forward.Sinks {
		if !sinkTypes[sink] {
			result.AddError("forward.sinks: unknown sink %q (http, redis, kafka, none)", sink)
			continue
		}

		switch sink {
		case "http":
			u, err := url.Parse(c.Forward.HTTP.URL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				result.AddError("forward.http.url %q must be an absolute http(s) URL", c.Forward.HTTP.URL)
			}
			if c.Forward.HTTP.Payload != "record" && c.Forward.HTTP.Payload != "text" {
				result.AddError("forward.http.payload must be 'record' or 'text', got %q", c.Forward.HTTP.Payload)
			}
			if c.Forward.HTTP.RateLimit < 0 {
				result.AddError("forward.http.rate_limit must not be negative")
			}
		case "redis":
			if c.Forward.Redis.Addr == "" {
				result.AddError("forward.redis.addr is required for the redis sink")
			}
			if c.Forward.Redis.Channel == "" {
				result.AddError("forward.redis.channel is required for the redis sink")
			}
		case "kafka":
			if len(c.Forward.Kafka.Brokers) == 0 {
				result.AddError("forward.kafka.brokers is required for the kafka sink (or set KAFKA_BROKERS)")
			}
			if c.Forward.Kafka.Topic == "" {
				result.AddError("forward.kafka.topic is required for the kafka sink")
			}
		}
	}
}

func (c *Config) validateRelay(result *ValidationResult) {
	if c.Relay.Addr == "" {
		result.AddError("relay.addr is required")
	}
	if c.Relay.AllowedOrigin == "" {
		result.AddWarning("relay.allowed_origin is empty; browsers on other origins cannot subscribe")
	}
	if c.Relay.KeepAlive <= 0 {
		result.AddError("relay.keep_alive must be positive, got %s", c.Relay.KeepAlive)
	}
}

func (c *Config) validateRecord(result *ValidationResult) {
	if strings.TrimSpace(c.Record.Unclassified) == "" {
		result.AddError("record.unclassified must not be blank")
	}
}
