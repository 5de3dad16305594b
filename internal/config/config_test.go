package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "git.home.luguber.info/inful/storysite/internal/errors"
	"git.home.luguber.info/inful/storysite/internal/retry"
)

const minimalYAML = `
cms:
  token: test-token
site:
  name: Example Site
  base_url: https://example.test/
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://api.storyblok.com/v1", cfg.CMS.BaseURL)
	assert.Equal(t, VersionPublished, cfg.CMS.Version)
	assert.Equal(t, 100, cfg.CMS.PerPage)
	assert.Equal(t, Duration(15*time.Second), cfg.CMS.Timeout)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 8081, cfg.Server.AdminPort)
	assert.Equal(t, "/images/og-default.png", cfg.Site.DefaultOGImage)
	assert.Equal(t, ":memory:", cfg.Store.Path)

	// Trailing slash normalized away.
	assert.Equal(t, "https://example.test", cfg.Site.BaseURL)
}

func TestParseExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_CMS_TOKEN", "env-token")
	cfg, err := Parse([]byte(`
cms:
  token: ${TEST_CMS_TOKEN}
site:
  base_url: https://example.test
`))
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.CMS.Token)
}

func TestValidateRejectsMissingToken(t *testing.T) {
	t.Setenv("STORYBLOK_TOKEN", "")
	_, err := Parse([]byte(`
site:
  base_url: https://example.test
`))
	require.Error(t, err)
	assert.True(t, serrors.IsCategory(err, serrors.CategoryConfig))
}

func TestValidateRejectsBadVersion(t *testing.T) {
	_, err := Parse([]byte(`
cms:
  token: x
  version: banana
site:
  base_url: https://example.test
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cms.version")
}

func TestValidateRejectsRelativeSiteURL(t *testing.T) {
	_, err := Parse([]byte(`
cms:
  token: x
site:
  base_url: example.test
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site.base_url")
}

func TestValidateRejectsPortCollision(t *testing.T) {
	_, err := Parse([]byte(minimalYAML + `
server:
  port: 9000
  admin_port: 9000
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestValidateEventsRequireURL(t *testing.T) {
	_, err := Parse([]byte(minimalYAML + `
events:
  enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events.nats_url")
}

func TestParseRetrySettings(t *testing.T) {
	cfg, err := Parse([]byte(`
cms:
  token: test-token
  retry:
    backoff: exponential
    initial_delay: 500ms
    max_delay: 10s
    max_retries: 4
site:
  base_url: https://example.test
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.CMS.Retry)
	assert.Equal(t, "exponential", cfg.CMS.Retry.Backoff)
	assert.Equal(t, Duration(500*time.Millisecond), cfg.CMS.Retry.Initial)
	assert.Equal(t, Duration(10*time.Second), cfg.CMS.Retry.Max)
	assert.Equal(t, 4, cfg.CMS.Retry.MaxRetries)
}

func TestRetryPolicyDefaultsToSingleAttempt(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	require.Nil(t, cfg.CMS.Retry)

	// Without an explicit retry section every fetch runs exactly once.
	assert.Equal(t, 0, cfg.CMS.RetryPolicy().MaxRetries)
}

func TestRetryPolicyFromConfig(t *testing.T) {
	c := CMSConfig{Retry: &RetryConfig{
		Backoff:    "exponential",
		Initial:    Duration(time.Second),
		Max:        Duration(8 * time.Second),
		MaxRetries: 3,
	}}

	p := c.RetryPolicy()
	assert.Equal(t, retry.BackoffExponential, p.Mode)
	assert.Equal(t, time.Second, p.Initial)
	assert.Equal(t, 8*time.Second, p.Max)
	assert.Equal(t, 3, p.MaxRetries)
}

func TestParseRejectsBadDuration(t *testing.T) {
	_, err := Parse([]byte(`
cms:
  token: x
  timeout: fast
site:
  base_url: https://example.test
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestValidateRejectsUnknownBackoff(t *testing.T) {
	_, err := Parse([]byte(`
cms:
  token: x
  retry:
    backoff: quadratic
site:
  base_url: https://example.test
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cms.retry.backoff")
}

func TestEffectiveVersionHonorsPreview(t *testing.T) {
	c := CMSConfig{Version: VersionPublished}
	assert.Equal(t, VersionPublished, c.EffectiveVersion())

	c.Preview = true
	assert.Equal(t, VersionDraft, c.EffectiveVersion())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Example Site", cfg.Site.Name)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
