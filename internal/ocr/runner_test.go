package ocr_test

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/ProstoyVadila/ml-service/internal/ocr"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"ok", 5, "ok"},
		{"abcdef", 4, "abcd...(truncated)"},
		{"Замена масла", 5, "За...(truncated)"},
		{"Замена масла", 1, "...(truncated)"},
	}
	for _, tt := range tests {
		got := ocr.Truncate(tt.in, tt.n)
		assert.Equal(t, tt.want, got, tt.in)
		assert.True(t, utf8.ValidString(got), tt.in)
	}
}
