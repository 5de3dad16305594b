package config

import (
	"fmt"
	"net/url"
	"strings"

	serrors "git.home.luguber.info/inful/storysite/internal/errors"
)

// Validate performs configuration validation across all sections.
func (c *Config) Validate() error {
	if err := c.validateCMS(); err != nil {
		return err
	}
	if err := c.validateSite(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCMS() error {
	if c.CMS.Token == "" {
		return serrors.New(serrors.CategoryConfig, serrors.SeverityFatal,
			"cms.token is required (set STORYBLOK_TOKEN or cms.token)")
	}
	if c.CMS.Version != VersionPublished && c.CMS.Version != VersionDraft {
		return serrors.New(serrors.CategoryConfig, serrors.SeverityFatal,
			fmt.Sprintf("cms.version must be %q or %q, got %q", VersionPublished, VersionDraft, c.CMS.Version))
	}
	if _, err := url.ParseRequestURI(c.CMS.BaseURL); err != nil {
		return serrors.Wrap(err, serrors.CategoryConfig, serrors.SeverityFatal, "cms.base_url is not a valid URL")
	}
	if c.CMS.PerPage < 1 || c.CMS.PerPage > 100 {
		return serrors.New(serrors.CategoryConfig, serrors.SeverityFatal,
			"cms.per_page must be between 1 and 100")
	}
	if r := c.CMS.Retry; r != nil {
		switch r.Backoff {
		case "", "fixed", "linear", "exponential":
		default:
			return serrors.New(serrors.CategoryConfig, serrors.SeverityFatal,
				fmt.Sprintf("cms.retry.backoff must be fixed, linear or exponential, got %q", r.Backoff))
		}
		if r.MaxRetries < 0 {
			return serrors.New(serrors.CategoryConfig, serrors.SeverityFatal,
				"cms.retry.max_retries must not be negative")
		}
	}
	return nil
}

func (c *Config) validateSite() error {
	if c.Site.BaseURL == "" {
		return serrors.New(serrors.CategoryConfig, serrors.SeverityFatal, "site.base_url is required")
	}
	if !strings.HasPrefix(c.Site.BaseURL, "http://") && !strings.HasPrefix(c.Site.BaseURL, "https://") {
		return serrors.New(serrors.CategoryConfig, serrors.SeverityFatal,
			"site.base_url must be an absolute http(s) URL")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return serrors.New(serrors.CategoryConfig, serrors.SeverityFatal, "server.port out of range")
	}
	if c.Server.AdminPort < 1 || c.Server.AdminPort > 65535 {
		return serrors.New(serrors.CategoryConfig, serrors.SeverityFatal, "server.admin_port out of range")
	}
	if c.Server.Port == c.Server.AdminPort {
		return serrors.New(serrors.CategoryConfig, serrors.SeverityFatal,
			"server.port and server.admin_port must differ")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if c.Events.NATSURL == "" {
		return serrors.New(serrors.CategoryConfig, serrors.SeverityFatal,
			"events.nats_url is required when events are enabled")
	}
	return nil
}
