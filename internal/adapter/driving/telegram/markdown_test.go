package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderPreviewFormatting(t *testing.T) {
	out := RenderPreview("**bold** and *italic* and `code`")

	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<em>italic</em>")
	assert.Contains(t, out, "<code>code</code>")
}

func TestRenderPreviewStripsDisallowedTags(t *testing.T) {
	out := RenderPreview("# Heading\n\nplain text")

	assert.NotContains(t, out, "<h1>")
	assert.NotContains(t, out, "<p>")
	assert.Contains(t, out, "Heading")
	assert.Contains(t, out, "plain text")
}

func TestRenderPreviewSanitizesRawHTML(t *testing.T) {
	out := RenderPreview(`hello <script>alert("x")</script> world`)

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "world")
}

func TestRenderPreviewKeepsLinks(t *testing.T) {
	out := RenderPreview("[docs](https://example.com/docs)")

	assert.Contains(t, out, `href="https://example.com/docs"`)
	assert.Contains(t, out, ">docs</a>")
}

func TestRenderPreviewTruncatesLongContent(t *testing.T) {
	out := RenderPreview(strings.Repeat("a", 500))

	assert.Contains(t, out, "…")
	assert.Less(t, len([]rune(out)), 120)
}

func TestTruncateRunesMultibyte(t *testing.T) {
	s := strings.Repeat("日", 150)
	got := truncateRunes(s, previewRunes)

	assert.Equal(t, previewRunes+1, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestTruncateRunesShortInputUnchanged(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", previewRunes))
}
