package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeySlug        = "slug"
	KeyCategory    = "category"
	KeyVersion     = "content_version"
	KeyEndpoint    = "endpoint"
	KeyStoryCount  = "story_count"
	KeyLinkCount   = "link_count"
	KeyPage        = "page"
	KeyDurationMS  = "duration_ms"
	KeyMethod      = "method"
	KeyPath        = "path"
	KeyStatus      = "status"
	KeyUserAgent   = "user_agent"
	KeyRemoteAddr  = "remote_addr"
	KeyRequestID   = "request_id"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Slug(s string) slog.Attr         { return slog.String(KeySlug, s) }
func Category(c string) slog.Attr     { return slog.String(KeyCategory, c) }
func Version(v string) slog.Attr      { return slog.String(KeyVersion, v) }
func Endpoint(e string) slog.Attr     { return slog.String(KeyEndpoint, e) }
func StoryCount(n int) slog.Attr      { return slog.Int(KeyStoryCount, n) }
func LinkCount(n int) slog.Attr       { return slog.Int(KeyLinkCount, n) }
func Page(p int) slog.Attr            { return slog.Int(KeyPage, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Status(s int) slog.Attr          { return slog.Int(KeyStatus, s) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
