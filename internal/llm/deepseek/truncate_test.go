package deepseek

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))

	// "Пробег" is two bytes per rune; cutting at 3 lands mid-rune.
	got := truncate("Пробег", 3)
	assert.Equal(t, "П...", got)
	assert.True(t, utf8.ValidString(got))
}
