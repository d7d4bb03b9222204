// Package config captures module-level configuration for the share link
// service: HTTP server, database, sharing behavior, mailer transport,
// and the upstream resource store.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
)

// Config is the root configuration consumed by cmd/server and embedders.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Database  DatabaseConfig  `mapstructure:"database" json:"database"`
	Sharing   SharingConfig   `mapstructure:"sharing" json:"sharing"`
	Mailer    MailerConfig    `mapstructure:"mailer" json:"mailer"`
	Resources ResourcesConfig `mapstructure:"resources" json:"resources"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the bun backend.
type DatabaseConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `mapstructure:"driver" json:"driver"`
	DSN    string `mapstructure:"dsn" json:"dsn"`
}

// SharingConfig tunes link creation and viewer behavior.
type SharingConfig struct {
	PublicBaseURL    string        `mapstructure:"public_base_url" json:"public_base_url"`
	MaxTokenAttempts int           `mapstructure:"max_token_attempts" json:"max_token_attempts"`
	NotifyTimeout    time.Duration `mapstructure:"notify_timeout" json:"notify_timeout"`
}

// MailerConfig selects and configures the outbound email transport.
type MailerConfig struct {
	// Provider is "console", "smtp", or "aws_ses".
	Provider string     `mapstructure:"provider" json:"provider"`
	From     string     `mapstructure:"from" json:"from"`
	SMTP     SMTPConfig `mapstructure:"smtp" json:"smtp"`
	SES      SESConfig  `mapstructure:"ses" json:"ses"`
}

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host        string `mapstructure:"host" json:"host"`
	Port        int    `mapstructure:"port" json:"port"`
	Username    string `mapstructure:"username" json:"username"`
	Password    string `mapstructure:"password" json:"password"`
	UseTLS      bool   `mapstructure:"use_tls" json:"use_tls"`
	UseStartTLS bool   `mapstructure:"use_starttls" json:"use_starttls"`
}

// SESConfig holds AWS SES settings.
type SESConfig struct {
	Region           string `mapstructure:"region" json:"region"`
	Profile          string `mapstructure:"profile" json:"profile"`
	ConfigurationSet string `mapstructure:"configuration_set" json:"configuration_set"`
	DryRun           bool   `mapstructure:"dry_run" json:"dry_run"`
}

// ResourcesConfig points at the upstream content service.
type ResourcesConfig struct {
	BaseURL string        `mapstructure:"base_url" json:"base_url"`
	Token   string        `mapstructure:"token" json:"token"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:sharelinks.db?cache=shared&_pragma=foreign_keys(1)",
		},
		Sharing: SharingConfig{
			PublicBaseURL:    "http://localhost:8080",
			MaxTokenAttempts: 5,
			NotifyTimeout:    30 * time.Second,
		},
		Mailer: MailerConfig{
			Provider: "console",
			SMTP: SMTPConfig{
				Port:        587,
				UseStartTLS: true,
			},
			SES: SESConfig{
				Region: "us-east-1",
			},
		},
		Resources: ResourcesConfig{
			Timeout: 10 * time.Second,
		},
	}
}

// Validate ensures required fields are present and sane.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535")
	}
	switch c.Database.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("database.driver must be sqlite or memory")
	}
	if c.Database.Driver == "sqlite" && strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required for sqlite")
	}
	if _, err := url.Parse(c.Sharing.PublicBaseURL); err != nil || strings.TrimSpace(c.Sharing.PublicBaseURL) == "" {
		return errors.New("sharing.public_base_url must be a valid url")
	}
	if c.Sharing.MaxTokenAttempts <= 0 {
		return fmt.Errorf("sharing.max_token_attempts must be > 0")
	}
	switch c.Mailer.Provider {
	case "console", "smtp", "aws_ses":
	default:
		return fmt.Errorf("mailer.provider must be console, smtp, or aws_ses")
	}
	if c.Mailer.Provider == "smtp" && strings.TrimSpace(c.Mailer.SMTP.Host) == "" {
		return errors.New("mailer.smtp.host is required for smtp")
	}
	if c.Mailer.Provider != "console" && strings.TrimSpace(c.Mailer.From) == "" {
		return errors.New("mailer.from is required")
	}
	return nil
}

// Load decodes arbitrary input (struct, map) using cfgx helpers. While
// cfgx.Build still returns zero values, we fallback to a lightweight
// decoder; once cfgx is fully implemented the fallback can go.
func Load(input any, opts ...LoadOption) (Config, error) {
	settings := loadOptions{}
	for _, opt := range opts {
		opt(&settings)
	}

	cfg, err := cfgx.Build(input, settings.buildOpts...)
	if err != nil {
		return Config{}, err
	}

	if isZero(cfg) {
		if err := decodeFallback(input, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg = cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadOption lets callers amend cfgx build options.
type LoadOption func(*loadOptions)

type loadOptions struct {
	buildOpts []cfgx.Option[Config]
}

// WithBuildOptions forwards cfgx options (duration hooks, preprocessors).
func WithBuildOptions(opts ...cfgx.Option[Config]) LoadOption {
	return func(lo *loadOptions) {
		lo.buildOpts = append(lo.buildOpts, opts...)
	}
}

func (c Config) withDefaults() Config {
	defaults := Defaults()

	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
	if c.Database.Driver == "" {
		c.Database.Driver = defaults.Database.Driver
	}
	if c.Database.DSN == "" {
		c.Database.DSN = defaults.Database.DSN
	}
	if c.Sharing.PublicBaseURL == "" {
		c.Sharing.PublicBaseURL = defaults.Sharing.PublicBaseURL
	}
	if c.Sharing.MaxTokenAttempts == 0 {
		c.Sharing.MaxTokenAttempts = defaults.Sharing.MaxTokenAttempts
	}
	if c.Sharing.NotifyTimeout == 0 {
		c.Sharing.NotifyTimeout = defaults.Sharing.NotifyTimeout
	}
	if c.Mailer.Provider == "" {
		c.Mailer.Provider = defaults.Mailer.Provider
	}
	if c.Mailer.SMTP.Port == 0 {
		c.Mailer.SMTP.Port = defaults.Mailer.SMTP.Port
	}
	if c.Mailer.SES.Region == "" {
		c.Mailer.SES.Region = defaults.Mailer.SES.Region
	}
	if c.Resources.Timeout == 0 {
		c.Resources.Timeout = defaults.Resources.Timeout
	}
	return c
}

func isZero(cfg Config) bool {
	return reflect.DeepEqual(cfg, Config{})
}

func decodeFallback(input any, cfg *Config) error {
	switch v := input.(type) {
	case nil:
		return nil
	case Config:
		*cfg = v
		return nil
	case *Config:
		if v != nil {
			*cfg = *v
		}
		return nil
	case map[string]any:
		return decodeMap(v, cfg)
	default:
		return fmt.Errorf("unsupported config input type: %T", input)
	}
}

func decodeMap(input map[string]any, cfg *Config) error {
	if input == nil {
		return nil
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, cfg)
}
