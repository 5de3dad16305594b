// Package config loads and validates the storysite configuration from YAML,
// with .env support and environment variable expansion.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/storysite/internal/cms"
	"git.home.luguber.info/inful/storysite/internal/retry"
)

// Duration wraps time.Duration so YAML values like "30s" or "5m" decode
// via time.ParseDuration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// AsDuration returns the underlying time.Duration.
func (d Duration) AsDuration() time.Duration { return time.Duration(d) }

// Config represents the application configuration
type Config struct {
	CMS     CMSConfig     `yaml:"cms"`
	Site    SiteConfig    `yaml:"site"`
	Server  ServerConfig  `yaml:"server"`
	Refresh RefreshConfig `yaml:"refresh"`
	Events  EventsConfig  `yaml:"events"`
	Routes  RoutesConfig  `yaml:"routes"`
	Store   StoreConfig   `yaml:"store"`
}

// CMSConfig describes the upstream content API.
type CMSConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
	Token   string `yaml:"token"`
	// Version selects the content stage: "published" or "draft".
	Version string `yaml:"version,omitempty"`
	// Preview forces draft content regardless of Version.
	Preview bool `yaml:"preview,omitempty"`
	// Retry opts into backoff for transient API failures. Nil means no
	// retries: by default every fetch is attempted exactly once.
	Retry   *RetryConfig `yaml:"retry,omitempty"`
	Timeout Duration     `yaml:"timeout,omitempty"`
	PerPage int          `yaml:"per_page,omitempty"`
}

// RetryConfig holds backoff settings for transient content API failures.
type RetryConfig struct {
	// Backoff is one of "fixed", "linear" or "exponential".
	Backoff    string   `yaml:"backoff,omitempty"`
	Initial    Duration `yaml:"initial_delay,omitempty"`
	Max        Duration `yaml:"max_delay,omitempty"`
	MaxRetries int      `yaml:"max_retries,omitempty"`
}

// RetryPolicy derives the client backoff policy. Without an explicit retry
// section every fetch is attempted exactly once.
func (c CMSConfig) RetryPolicy() retry.Policy {
	if c.Retry == nil {
		return retry.None()
	}
	return retry.NewPolicy(retry.BackoffMode(c.Retry.Backoff),
		c.Retry.Initial.AsDuration(), c.Retry.Max.AsDuration(), c.Retry.MaxRetries)
}

// EffectiveVersion returns the content version honoring the preview flag.
func (c CMSConfig) EffectiveVersion() string {
	if c.Preview {
		return VersionDraft
	}
	if c.Version == "" {
		return VersionPublished
	}
	return c.Version
}

const (
	VersionPublished = cms.VersionPublished
	VersionDraft     = cms.VersionDraft
)

// SiteConfig describes the public site the pipeline derives data for.
type SiteConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	BaseURL     string `yaml:"base_url"`
	// DefaultOGImage is the path of the fallback Open Graph image, relative
	// to BaseURL unless absolute.
	DefaultOGImage string `yaml:"default_og_image,omitempty"`
	LogoPath       string `yaml:"logo_path,omitempty"`
	// SameAs lists organization profile URLs for schema.org output.
	SameAs []string `yaml:"same_as,omitempty"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port      int `yaml:"port,omitempty"`
	AdminPort int `yaml:"admin_port,omitempty"`
}

// RefreshConfig controls periodic re-derivation of cached upstream data.
type RefreshConfig struct {
	Enabled  bool     `yaml:"enabled,omitempty"`
	Interval Duration `yaml:"interval,omitempty"`
}

// EventsConfig controls publishing content-refresh events to NATS.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// RoutesConfig controls static route list generation.
type RoutesConfig struct {
	Output string `yaml:"output,omitempty"`
}

// StoreConfig holds the snapshot cache settings.
type StoreConfig struct {
	// Path is the SQLite database path; ":memory:" keeps snapshots in-process.
	Path string   `yaml:"path,omitempty"`
	TTL  Duration `yaml:"ttl,omitempty"`
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env/.env.local if present; missing files are fine.
	if err := loadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes raw YAML into a Config, expanding environment variables and
// applying defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.CMS.BaseURL == "" {
		c.CMS.BaseURL = "https://api.storyblok.com/v1"
	}
	if c.CMS.Token == "" {
		c.CMS.Token = os.Getenv("STORYBLOK_TOKEN")
	}
	if c.CMS.Version == "" {
		c.CMS.Version = VersionPublished
	}
	if c.CMS.Timeout == 0 {
		c.CMS.Timeout = Duration(15 * time.Second)
	}
	if c.CMS.PerPage == 0 {
		c.CMS.PerPage = 100
	}
	if c.Site.Name == "" {
		c.Site.Name = "Storysite"
	}
	if c.Site.DefaultOGImage == "" {
		c.Site.DefaultOGImage = "/images/og-default.png"
	}
	if c.Site.LogoPath == "" {
		c.Site.LogoPath = "/apple-touch-icon.png"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.AdminPort == 0 {
		c.Server.AdminPort = 8081
	}
	if c.Refresh.Interval == 0 {
		c.Refresh.Interval = Duration(time.Hour)
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "storysite.content.refresh"
	}
	if c.Routes.Output == "" {
		c.Routes.Output = ".routes.json"
	}
	if c.Store.Path == "" {
		c.Store.Path = ":memory:"
	}
	if c.Store.TTL == 0 {
		c.Store.TTL = Duration(5 * time.Minute)
	}
	c.Site.BaseURL = strings.TrimSuffix(c.Site.BaseURL, "/")
	c.CMS.BaseURL = strings.TrimSuffix(c.CMS.BaseURL, "/")
}

// loadEnvFiles loads environment variables from .env/.env.local files.
// It attempts each supported filename in order and stops at the first
// successfully loaded file. Existing process env vars are not overwritten.
func loadEnvFiles() error {
	envPaths := []string{".env", ".env.local"}
	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err == nil {
			fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", envPath)
			return nil
		}
	}
	return fmt.Errorf("no .env file found")
}

// Init writes a starter configuration file to configPath.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		CMS: CMSConfig{
			Token:   "${STORYBLOK_TOKEN}",
			Version: VersionPublished,
		},
		Site: SiteConfig{
			Name:           "My Site",
			Description:    "A content-driven site",
			BaseURL:        "https://example.com",
			DefaultOGImage: "/images/og-default.png",
			LogoPath:       "/images/logo.png",
		},
		Server: ServerConfig{
			Port:      8080,
			AdminPort: 8081,
		},
		Refresh: RefreshConfig{
			Enabled:  true,
			Interval: Duration(5 * time.Minute),
		},
		Routes: RoutesConfig{
			Output: "routes.json",
		},
		Store: StoreConfig{
			Path: "snapshots.db",
			TTL:  Duration(time.Hour),
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
