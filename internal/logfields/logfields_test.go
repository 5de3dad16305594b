package logfields

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	assert.Equal(t, KeySlug, Slug("about").Key)
	assert.Equal(t, "about", Slug("about").Value.String())

	assert.Equal(t, KeyCategory, Category("blog").Key)
	assert.Equal(t, KeyVersion, Version("published").Key)
	assert.Equal(t, KeyEndpoint, Endpoint("cdn/links").Key)
	assert.Equal(t, KeyMethod, Method("GET").Key)
	assert.Equal(t, KeyPath, Path("/sitemap.xml").Key)
}

func TestIntHelpers(t *testing.T) {
	assert.Equal(t, int64(3), StoryCount(3).Value.Int64())
	assert.Equal(t, int64(7), LinkCount(7).Value.Int64())
	assert.Equal(t, int64(2), Page(2).Value.Int64())
	assert.Equal(t, int64(200), Status(200).Value.Int64())
}

func TestErrorHelper(t *testing.T) {
	assert.Equal(t, "", Error(nil).Value.String())
	assert.Equal(t, "boom", Error(fmt.Errorf("boom")).Value.String())
}
