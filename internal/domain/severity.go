package domain

// Severity is the discrete bucket a factor's normalized ratio falls into.
// The four-level scale mirrors the tiers the dashboard tiles display.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// rank orders severities for comparisons; higher is worse.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe or more severe than other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// Classify maps a raw value against its maximum to a severity bucket.
// The ratio is clamped to [0,1]; reverse factors invert it so that a low
// raw value reads as high severity (e.g. market-sentiment style indices).
// A non-positive max cannot produce a meaningful ratio and classifies as low;
// callers treat such factors as ineligible for aggregation.
func Classify(value, max float64, reverse bool) Severity {
	if max <= 0 {
		return SeverityLow
	}

	n := clamp01(value / max)
	if reverse {
		n = 1 - n
	}

	switch {
	case n >= 0.75:
		return SeverityCritical
	case n >= 0.50:
		return SeverityHigh
	case n >= 0.25:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func clamp01(n float64) float64 {
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}
