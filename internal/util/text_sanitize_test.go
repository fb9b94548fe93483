package util

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSanitizeTextRemovesNulAndControls(t *testing.T) {
	require.Equal(t, "abcd\n\txy", SanitizeText("ab\x00cd\x01\x02\n\txy"))
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "Product: Widget X Score: 75", CleanText("  Product:\tWidget X\x00\n\n  Score: 75 \x7f", 0))

	long := strings.Repeat("é ", 8000)
	out := CleanText(long, 10000)
	require.Equal(t, 10000, utf8.RuneCountInString(out)+1)
	require.False(t, strings.HasSuffix(out, " "))
}
