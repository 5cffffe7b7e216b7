package reply

import (
	"strings"

	"github.com/dustin/go-humanize"
)

// JoinList renders "a", "a and b", "a, b, and c".
func JoinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2: //nolint:mnd
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

// IsAre agrees the verb with n.
func IsAre(n int) string {
	if n == 1 {
		return "is"
	}

	return "are"
}

// Plural returns the "s" suffix unless n is 1.
func Plural(n int) string {
	if n == 1 {
		return ""
	}

	return "s"
}

// FormatCount renders n with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}
