package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatValue renders a factor value for tile display: integers without a
// fraction, everything else with one decimal place, large values compacted
// ("12.4K", "3.1M").
func FormatValue(v float64) string {
	switch {
	case v >= 1_000_000:
		return trimZero(fmt.Sprintf("%.1fM", v/1_000_000))
	case v >= 10_000:
		return trimZero(fmt.Sprintf("%.1fK", v/1_000))
	case v == float64(int64(v)):
		return strconv.FormatInt(int64(v), 10)
	default:
		return fmt.Sprintf("%.1f", v)
	}
}

// FormatScore renders the chaos index with one decimal place, matching the
// upstream generator's rounding.
func FormatScore(score float64) string {
	return fmt.Sprintf("%.1f", score)
}

// trimZero drops a redundant ".0" before a magnitude suffix: "12.0K" → "12K".
func trimZero(s string) string {
	return strings.Replace(s, ".0", "", 1)
}
