// Package config provides configuration loading and validation for LogWarden.
package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure loaded from YAML or TOML.
type Config struct {
	// ChecksFile is an optional delimited check list (method,path,active,param).
	// Relative paths are resolved against the config file's directory.
	ChecksFile string `yaml:"checks_file,omitempty" toml:"checks_file,omitempty"`

	// Checks are inline entries, run after the ones from ChecksFile.
	Checks []CheckConfig `yaml:"checks,omitempty" toml:"checks,omitempty"`

	// StateFile holds the start time of the previous run.
	// Defaults to StartLog.txt next to the config file.
	StateFile string `yaml:"state_file,omitempty" toml:"state_file,omitempty"`

	// Timezone is the location log timestamps are read in ("Local" if empty).
	Timezone string `yaml:"timezone,omitempty" toml:"timezone,omitempty"`

	Logging  LoggingConfig   `yaml:"logging,omitempty" toml:"logging,omitempty"`
	Scan     ScanConfig      `yaml:"scan,omitempty" toml:"scan,omitempty"`
	Email    *EmailConfig    `yaml:"email,omitempty" toml:"email,omitempty"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty" toml:"webhooks,omitempty"`

	// Rejected holds rows of ChecksFile that could not be read as entries.
	Rejected []error `yaml:"-" toml:"-"`

	location *time.Location
}

// Location returns the resolved timezone (populated during validation).
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Method names a check.
type Method string

const (
	MethodMissingDailyFile   Method = "check_missing_daily_file"
	MethodFolderNotEmpty     Method = "is_folder_not_empty"
	MethodFileCountThreshold Method = "check_file_counts_above_threshold"
	MethodCheckError         Method = "check_error"
	MethodServices           Method = "services"
)

// CheckConfig is one monitoring entry.
type CheckConfig struct {
	Method string `yaml:"method" toml:"method"`

	// Path is a folder, or the service name for the services method.
	Path string `yaml:"path" toml:"path"`

	// Active defaults to true for inline entries.
	Active *bool `yaml:"active,omitempty" toml:"active,omitempty"`

	// Param depends on the method: a time of day, a file limit,
	// a suppression field or a "Status|StartupType" expectation.
	Param string `yaml:"param,omitempty" toml:"param,omitempty"`

	// Source is where the entry was read from, e.g. "checks.csv:4".
	Source string `yaml:"-" toml:"-"`
}

// Kind returns the normalized method.
func (c CheckConfig) Kind() Method {
	return Method(strings.ToLower(strings.TrimSpace(c.Method)))
}

// IsActive reports whether the entry should run.
func (c CheckConfig) IsActive() bool {
	return c.Active == nil || *c.Active
}

// IsFolderCheck reports whether Path names a folder.
func (c CheckConfig) IsFolderCheck() bool {
	return c.Kind() != MethodServices
}

// LoggingConfig controls the log output of the tool itself.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level,omitempty" toml:"level,omitempty"`
}

// ScanConfig tunes the error log scanner.
type ScanConfig struct {
	// Workers is the number of files of one folder scanned at once.
	Workers int `yaml:"workers,omitempty" toml:"workers,omitempty"`

	// MaxLineSize is the longest line accepted, in bytes.
	MaxLineSize int `yaml:"max_line_size,omitempty" toml:"max_line_size,omitempty"`

	// Encoding is used for files without a byte order mark.
	Encoding string `yaml:"encoding,omitempty" toml:"encoding,omitempty"`
}

// Security selects how the SMTP connection is protected.
type Security string

const (
	SecurityStartTLS Security = "starttls"
	SecurityTLS      Security = "tls"
	SecurityNone     Security = "none"
)

// EmailConfig defines where the report is mailed.
type EmailConfig struct {
	From       string   `yaml:"from" toml:"from"`
	To         []string `yaml:"to" toml:"to"`
	SMTPServer string   `yaml:"smtp_server" toml:"smtp_server"`
	SMTPPort   int      `yaml:"smtp_port,omitempty" toml:"smtp_port,omitempty"`

	// Username defaults to From.
	Username string `yaml:"username,omitempty" toml:"username,omitempty"`

	// Password may reference an environment variable (${VAR} or $VAR).
	Password string `yaml:"password,omitempty" toml:"password,omitempty"`

	Security   Security `yaml:"security,omitempty" toml:"security,omitempty"`
	Subject    string   `yaml:"subject,omitempty" toml:"subject,omitempty"`
	Retries    int      `yaml:"retries,omitempty" toml:"retries,omitempty"`
	RetryDelay Duration `yaml:"retry_delay,omitempty" toml:"retry_delay,omitempty"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnIssues fires only when findings are reported (default).
	WebhookTriggerOnIssues WebhookTrigger = "on_issues"
	// WebhookTriggerAlways fires after every run.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending run reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty" toml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url" toml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty" toml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_issues" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty" toml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
}

// Duration is a time.Duration written as "10s" or "1m30s" in both YAML and TOML.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}
