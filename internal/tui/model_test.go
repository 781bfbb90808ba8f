package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"hello world"}, wrapText("hello world", 20))
	assert.Equal(t, []string{"hello", "world"}, wrapText("hello world", 5))
	assert.Equal(t, []string{""}, wrapText("", 10))

	lines := wrapText("a bb ccc dddd", 4)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 4)
	}
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "abcdef", padRight("abcdef", 4), "wider strings pass through")
}

func TestTruncateToWidth(t *testing.T) {
	assert.Equal(t, "short", truncateToWidth("short", 10))
	got := truncateToWidth("a very long sidebar line", 10)
	assert.LessOrEqual(t, len([]rune(got)), 10)
}
