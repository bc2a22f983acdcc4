package config

import (
	"os"
	"time"

	"github.com/ccollicutt/logwarden/pkg/parser"
)

// Default values for configuration.
const (
	DefaultStateFile      = "StartLog.txt"
	DefaultLogLevel       = "info"
	DefaultWorkers        = 1
	DefaultMaxLineSize    = parser.DefaultMaxLineSize
	DefaultEncoding       = "utf-8"
	DefaultSubject        = "Monitoring Tool Report"
	DefaultRetries        = 3
	DefaultRetryDelay     = 2 * time.Second
	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvChecksFile = "LOGWARDEN_CHECKS_FILE"
	EnvStateFile  = "LOGWARDEN_STATE_FILE"
	EnvLogLevel   = "LOGWARDEN_LOG_LEVEL"
	EnvSMTPPass   = "LOGWARDEN_SMTP_PASS"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Checks: []CheckConfig{},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
		Scan: ScanConfig{
			Workers:     DefaultWorkers,
			MaxLineSize: DefaultMaxLineSize,
			Encoding:    DefaultEncoding,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv(EnvChecksFile); v != "" {
		c.ChecksFile = v
	}
	if v := os.Getenv(EnvStateFile); v != "" {
		c.StateFile = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvSMTPPass); v != "" && c.Email != nil {
		c.Email.Password = v
	}
}

// defaultPort returns the usual SMTP port for a security mode.
func defaultPort(s Security) int {
	switch s {
	case SecurityTLS:
		return 465
	case SecurityNone:
		return 25
	default:
		return 587
	}
}
