package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTruncateTextKeepsValidUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	// "héllo" truncated mid-rune must drop the partial byte.
	text := "h\xc3\xa9llo"
	truncated := tp.TruncateText(text, 2)
	assert.True(t, utf8.ValidString(truncated))
	assert.Equal(t, "h", truncated)

	assert.Equal(t, "short", tp.TruncateText("short", 100))
	assert.Equal(t, "abc", tp.TruncateText("abcdef", 3))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "fixed the bug", Normalize("  Fixed The BUG  ", 0))
	assert.Equal(t, "aaaa", Normalize("AAAAAA", 4))

	// A length cap landing mid-rune must back off to a valid boundary.
	assert.Equal(t, "h", Normalize("h\xc3\xa9llo", 2))
}

func TestSanitizeUTF8DropsInvalidBytes(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	clean := tp.SanitizeUTF8("valid " + string([]byte{0xff, 0xfe}) + "tail")
	assert.True(t, utf8.ValidString(clean))
	assert.True(t, strings.HasPrefix(clean, "valid "))
	assert.True(t, strings.HasSuffix(clean, "tail"))
}
