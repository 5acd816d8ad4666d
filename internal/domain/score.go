package domain

import "math"

// Band is the completion message tier derived from the final percentage.
type Band string

const (
	BandOutstanding   Band = "outstanding"
	BandGreat         Band = "great"
	BandGood          Band = "good"
	BandEncouragement Band = "encouragement"
)

// Banding thresholds, in percent. Product-tunable, so named rather than inlined.
const (
	OutstandingThreshold = 90.0
	GreatThreshold       = 70.0
	GoodThreshold        = 50.0
)

// Percent computes score/total as a percentage rounded to one decimal.
// A zero-question chapter reports 0%, not a division error.
func Percent(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*1000) / 10
}

// BandFor maps a completed chapter's result to its message band.
func BandFor(score, total int) Band {
	pct := Percent(score, total)
	switch {
	case pct >= OutstandingThreshold:
		return BandOutstanding
	case pct >= GreatThreshold:
		return BandGreat
	case pct >= GoodThreshold:
		return BandGood
	default:
		return BandEncouragement
	}
}
