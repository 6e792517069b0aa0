// Package config provides configuration parsing and validation for the miles-api service.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds all configuration parameters for the miles-api service.
type Config struct {
	HTTPPort            string
	SharedSecret        string
	HeaderName          string
	ExpectedHeaderValue string
	AdminToken          string
	IPAllowlist         string // comma-separated, empty means allow all
	DatabaseURL         string
	RedisAddr           string // optional, enables service metrics reporting
	KafkaBrokers        string // optional, enables the outbound event mirror
	EventsTopic         string
}

// Validate checks that all required configuration fields are set and have valid values.
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("http-port cannot be empty")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database-url cannot be empty")
	}
	if c.KafkaBrokers != "" && c.EventsTopic == "" {
		return fmt.Errorf("events-topic cannot be empty when kafka-brokers is set")
	}
	return nil
}

// AllowedIPs returns the parsed IP allowlist with whitespace trimmed
// and empty entries removed. An empty result means every IP is allowed.
func (c *Config) AllowedIPs() []string {
	if c.IPAllowlist == "" {
		return nil
	}
	var ips []string
	for _, ip := range strings.Split(c.IPAllowlist, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

// IsFileStore reports whether DatabaseURL denotes the embedded
// file-based store rather than a Postgres server.
func (c *Config) IsFileStore() bool {
	return strings.HasPrefix(c.DatabaseURL, "file:") || strings.HasPrefix(c.DatabaseURL, "sqlite:")
}

// GetEnvOrDefault returns the environment variable value or a default if not set.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvOrFallback returns the first of the named environment variables
// that is set, or the default. The webhook vendor's original env names
// are kept as fallbacks for drop-in deployment.
func GetEnvOrFallback(defaultValue string, keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

// MaskDSN masks sensitive information in a DSN for logging.
func MaskDSN(dsn string) string {
	if len(dsn) > 50 {
		return dsn[:20] + "***" + dsn[len(dsn)-20:]
	}
	return "***"
}
