package telegram

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// previewRunes caps how much of the note is echoed back in a confirmation.
const previewRunes = 100

var (
	mdRenderer     goldmark.Markdown
	telegramPolicy *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	// Telegram's HTML parse mode accepts only a small tag set; anything else
	// in a message is rejected by the API, so the policy is strict.
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "ins", "s", "strike", "del", "code", "pre")
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	telegramPolicy = p
}

// RenderPreview converts note content to a Telegram-safe HTML preview:
// markdown rendered by goldmark, then sanitized down to the tags Telegram
// allows. Content is truncated before rendering so markup never gets cut
// mid-tag.
func RenderPreview(content string) string {
	content = truncateRunes(content, previewRunes)

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(content), &buf); err != nil {
		return telegramPolicy.Sanitize(content)
	}

	return strings.TrimSpace(telegramPolicy.Sanitize(buf.String()))
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
