package content

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
)

// PlainText flattens a rich-text tree to plain text: every node's text,
// pre-order, space-joined, trimmed.
func PlainText(rt *RichText) string {
	if rt == nil {
		return ""
	}
	var parts []string
	collectText(rt, &parts, 0)
	return strings.TrimSpace(strings.Join(parts, " "))
}

func collectText(rt *RichText, parts *[]string, depth int) {
	if rt == nil || depth > maxDepth {
		return
	}
	if rt.Text != "" {
		*parts = append(*parts, rt.Text)
	}
	for i := range rt.Content {
		collectText(&rt.Content[i], parts, depth+1)
	}
}

// PlainTextHTML strips markup from a raw HTML fragment, returning the
// space-joined text content.
func PlainTextHTML(fragment string) string {
	var parts []string
	tok := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := tok.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			if text := strings.TrimSpace(string(tok.Text())); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// PlainTextMarkdown renders markdown and strips the resulting markup, so
// markdown blocks feed the same description fallbacks as rich text.
func PlainTextMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		// Fall back to the raw source rather than dropping the text.
		return strings.TrimSpace(md)
	}
	return PlainTextHTML(buf.String())
}

// PlainTextFromBloks flattens the textual content of a block list: rich-text
// components and markdown components contribute in document order.
func PlainTextFromBloks(bloks []Blok) string {
	var parts []string
	collectBlokText(bloks, &parts, 0)
	return strings.TrimSpace(strings.Join(parts, " "))
}

func collectBlokText(bloks []Blok, parts *[]string, depth int) {
	if depth > maxDepth {
		return
	}
	for i := range bloks {
		b := &bloks[i]
		if b.Text != nil {
			if text := PlainText(b.Text); text != "" {
				*parts = append(*parts, text)
			}
		}
		if b.Component == KindMarkdown && b.Markdown != "" {
			if text := PlainTextMarkdown(b.Markdown); text != "" {
				*parts = append(*parts, text)
			}
		}
		collectBlokText(b.Body, parts, depth+1)
		collectBlokText(b.Columns, parts, depth+1)
		collectBlokText(b.Components, parts, depth+1)
	}
}

// Truncate shortens s to at most n bytes on a rune boundary. Used for the
// 160-character description fallback.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
