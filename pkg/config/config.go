package config

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/logwarden/pkg/parser"
)

// Load reads and validates a configuration file. Files ending in .toml are
// parsed as TOML, anything else as YAML. The checks file, if any, is read and
// its entries placed before the inline ones. Individual entries are not
// validated here; see ValidateCheck.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.resolvePaths(filepath.Dir(path))

	if cfg.ChecksFile != "" {
		entries, rejected, err := LoadChecksFile(cfg.ChecksFile)
		if err != nil {
			return nil, fmt.Errorf("checks_file: %w", err)
		}
		cfg.Checks = append(entries, cfg.Checks...)
		cfg.Rejected = rejected
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

// resolvePaths makes relative file settings relative to dir.
func (c *Config) resolvePaths(dir string) {
	if c.StateFile == "" {
		c.StateFile = DefaultStateFile
	}
	if !filepath.IsAbs(c.StateFile) {
		c.StateFile = filepath.Join(dir, c.StateFile)
	}
	if c.ChecksFile != "" && !filepath.IsAbs(c.ChecksFile) {
		c.ChecksFile = filepath.Join(dir, c.ChecksFile)
	}
}

// Validate checks the settings for errors and fills in defaults. Check
// entries are left to ValidateChecks so that one bad entry does not stop
// the others from running.
func Validate(cfg *Config) error {
	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFile
	}

	loc, err := ResolveLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	cfg.location = loc

	if err := validateLogging(&cfg.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if err := validateScan(&cfg.Scan); err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if cfg.Email != nil {
		if err := validateEmail(cfg.Email); err != nil {
			return fmt.Errorf("email: %w", err)
		}
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

// ResolveLocation loads a time zone by IANA name. "", "Local" and "local"
// mean the system zone.
func ResolveLocation(name string) (*time.Location, error) {
	switch strings.TrimSpace(name) {
	case "", "Local", "local":
		return time.Local, nil
	default:
		loc, err := time.LoadLocation(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("unknown location %q: %w", name, err)
		}
		return loc, nil
	}
}

func validateLogging(l *LoggingConfig) error {
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("invalid level %q (must be debug, info, warn, or error)", l.Level)
	}
}

func validateScan(s *ScanConfig) error {
	if s.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", s.Workers)
	}
	if s.Workers == 0 {
		s.Workers = DefaultWorkers
	}
	if s.MaxLineSize < 0 {
		return fmt.Errorf("max_line_size must be >= 0, got %d", s.MaxLineSize)
	}
	if s.MaxLineSize == 0 {
		s.MaxLineSize = DefaultMaxLineSize
	}
	if s.Encoding == "" {
		s.Encoding = DefaultEncoding
	}
	if _, err := parser.LookupEncoding(s.Encoding); err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	return nil
}

// ReaderOptions converts the scan settings for the line reader.
func (s ScanConfig) ReaderOptions() (parser.ReaderOptions, error) {
	enc, err := parser.LookupEncoding(s.Encoding)
	if err != nil {
		return parser.ReaderOptions{}, err
	}
	return parser.ReaderOptions{MaxLineSize: s.MaxLineSize, Fallback: enc}, nil
}

func validateEmail(e *EmailConfig) error {
	if e.From == "" {
		return errors.New("from is required")
	}
	if _, err := mail.ParseAddress(e.From); err != nil {
		return fmt.Errorf("invalid from address %q: %w", e.From, err)
	}

	if len(e.To) == 0 {
		return errors.New("at least one to address is required")
	}
	for i, addr := range e.To {
		if _, err := mail.ParseAddress(addr); err != nil {
			return fmt.Errorf("to[%d]: invalid address %q: %w", i, addr, err)
		}
	}

	if e.SMTPServer == "" {
		return errors.New("smtp_server is required")
	}

	if e.Security == "" {
		e.Security = SecurityStartTLS
	}
	switch e.Security {
	case SecurityStartTLS, SecurityTLS, SecurityNone:
		// Valid
	default:
		return fmt.Errorf("invalid security %q (must be starttls, tls, or none)", e.Security)
	}

	if e.SMTPPort == 0 {
		e.SMTPPort = defaultPort(e.Security)
	}
	if e.SMTPPort < 1 || e.SMTPPort > 65535 {
		return fmt.Errorf("smtp_port out of range: %d", e.SMTPPort)
	}

	if e.Username == "" {
		e.Username = e.From
	}
	e.Password = expandEnvVar(e.Password)

	if e.Subject == "" {
		e.Subject = DefaultSubject
	}

	if e.Retries < 0 {
		return fmt.Errorf("retries must be >= 0, got %d", e.Retries)
	}
	if e.Retries == 0 {
		e.Retries = DefaultRetries
	}
	if e.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be >= 0, got %s", e.RetryDelay)
	}
	if e.RetryDelay == 0 {
		e.RetryDelay = Duration(DefaultRetryDelay)
	}

	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	// Validate URL format
	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	// Validate trigger if specified
	if wh.Trigger != "" {
		switch wh.Trigger {
		case WebhookTriggerOnIssues, WebhookTriggerAlways, WebhookTriggerNever:
			// Valid
		default:
			return fmt.Errorf("invalid trigger %q (must be on_issues, always, or never)", wh.Trigger)
		}
	} else {
		// Default to on_issues
		wh.Trigger = WebhookTriggerOnIssues
	}

	// Default timeout
	if wh.Timeout <= 0 {
		wh.Timeout = Duration(DefaultWebhookTimeout)
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		varName := s[1:]
		return os.Getenv(varName)
	}

	return s
}
