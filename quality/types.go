// Package quality scores extracted text for how much it looks like a usable CV.
// This file contains the report types; scoring lives in scorer.go.
package quality

// Tier is the coarse quality bucket derived from a score.
type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierPoor      Tier = "poor"
	TierFailed    Tier = "failed"
)

// Tier boundaries (inclusive lower bounds).
const (
	ExcellentThreshold = 85
	GoodThreshold      = 65
	PoorThreshold      = 30
)

var tierRank = map[Tier]int{
	TierFailed:    0,
	TierPoor:      1,
	TierGood:      2,
	TierExcellent: 3,
}

// TierFor maps a 0-100 score to its tier.
func TierFor(score int) Tier {
	switch {
	case score >= ExcellentThreshold:
		return TierExcellent
	case score >= GoodThreshold:
		return TierGood
	case score >= PoorThreshold:
		return TierPoor
	default:
		return TierFailed
	}
}

// AtLeast reports whether t is the same as or better than other.
func (t Tier) AtLeast(other Tier) bool {
	return tierRank[t] >= tierRank[other]
}

// Report is the immutable result of scoring one text.
type Report struct {
	// Score is the clamped quality score (0-100)
	Score int `json:"score"`

	// Tier is the bucket for Score
	Tier Tier `json:"tier"`

	// Indicators lists the structural indicators that matched, in evaluation order
	Indicators []string `json:"indicators,omitempty"`

	// Issues are human-readable findings for diagnostics. They never feed back
	// into control flow.
	Issues []string `json:"issues,omitempty"`
}

// Passed reports whether the text is usable at all.
func (r Report) Passed() bool {
	return r.Tier != TierFailed
}
