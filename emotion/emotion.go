// Package emotion holds the fixed emotion taxonomy and the arithmetic that turns
// per-category magnitudes into a signed framing score and label.
package emotion

import (
	"fmt"
	"math"
	"sort"

	"go-tonescope/types"
)

// Categories is the fixed key set in canonical order. Ties in ranking are broken
// by this order.
var Categories = [...]string{
	"admiration", "amusement", "anger", "annoyance", "approval", "caring",
	"confusion", "curiosity", "desire", "disappointment", "disapproval", "disgust",
	"embarrassment", "excitement", "fear", "gratitude", "grief", "joy", "love",
	"nervousness", "optimism", "pride", "realization", "relief", "remorse",
	"sadness", "surprise", "neutral",
}

// Positive and Negative are disjoint; the remaining categories do not move the score.
var Positive = [...]string{
	"admiration", "amusement", "approval", "caring", "desire", "excitement",
	"gratitude", "joy", "love", "optimism", "pride", "relief",
}

var Negative = [...]string{
	"anger", "annoyance", "disappointment", "disapproval", "disgust",
	"embarrassment", "fear", "grief", "nervousness", "remorse", "sadness",
}

// Label thresholds. Both comparisons are strict.
const (
	RespectfulAbove   = 0.1
	ContemptuousBelow = -0.1
)

func field(s *types.EmotionScores, name string) *float64 {
	switch name {
	case "admiration":
		return &s.Admiration
	case "amusement":
		return &s.Amusement
	case "anger":
		return &s.Anger
	case "annoyance":
		return &s.Annoyance
	case "approval":
		return &s.Approval
	case "caring":
		return &s.Caring
	case "confusion":
		return &s.Confusion
	case "curiosity":
		return &s.Curiosity
	case "desire":
		return &s.Desire
	case "disappointment":
		return &s.Disappointment
	case "disapproval":
		return &s.Disapproval
	case "disgust":
		return &s.Disgust
	case "embarrassment":
		return &s.Embarrassment
	case "excitement":
		return &s.Excitement
	case "fear":
		return &s.Fear
	case "gratitude":
		return &s.Gratitude
	case "grief":
		return &s.Grief
	case "joy":
		return &s.Joy
	case "love":
		return &s.Love
	case "nervousness":
		return &s.Nervousness
	case "optimism":
		return &s.Optimism
	case "pride":
		return &s.Pride
	case "realization":
		return &s.Realization
	case "relief":
		return &s.Relief
	case "remorse":
		return &s.Remorse
	case "sadness":
		return &s.Sadness
	case "surprise":
		return &s.Surprise
	case "neutral":
		return &s.Neutral
	}
	return nil
}

// Value returns the magnitude for name, or 0 for a name outside the fixed set.
func Value(s types.EmotionScores, name string) float64 {
	if f := field(&s, name); f != nil {
		return *f
	}
	return 0
}

// Set assigns the magnitude for name and reports whether name is a known category.
func Set(s *types.EmotionScores, name string, v float64) bool {
	f := field(s, name)
	if f == nil {
		return false
	}
	*f = v
	return true
}

// Clamp bounds v to [lo, hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Normalize clamps every category into [0, 1].
func Normalize(s types.EmotionScores) types.EmotionScores {
	for _, name := range Categories {
		f := field(&s, name)
		*f = Clamp(*f, 0, 1)
	}
	return s
}

// FromMap builds a complete score record from a loose mapping. Unknown names are
// ignored and missing ones stay at 0.
func FromMap(m map[string]float64) types.EmotionScores {
	var s types.EmotionScores
	for name, v := range m {
		Set(&s, name, v)
	}
	return Normalize(s)
}

// ToMap returns the scores keyed by category name.
func ToMap(s types.EmotionScores) map[string]float64 {
	m := make(map[string]float64, len(Categories))
	for _, name := range Categories {
		m[name] = Value(s, name)
	}
	return m
}

// FramingScore is (sum(Positive) - sum(Negative)) / max(len(Positive), len(Negative)),
// clamped to [-1, 1].
func FramingScore(s types.EmotionScores) float64 {
	var positiveSum, negativeSum float64
	for _, name := range Positive {
		positiveSum += Value(s, name)
	}
	for _, name := range Negative {
		negativeSum += Value(s, name)
	}

	denom := float64(max(len(Positive), len(Negative)))
	return Clamp((positiveSum-negativeSum)/denom, -1, 1)
}

// Label maps a framing score to its verdict.
func Label(score float64) types.Framing {
	switch {
	case score > RespectfulAbove:
		return types.FramingRespectful
	case score < ContemptuousBelow:
		return types.FramingContemptuous
	default:
		return types.FramingNeutral
	}
}

// Ranked is one category with its magnitude.
type Ranked struct {
	Name  string
	Score float64
}

func (r Ranked) String() string {
	return fmt.Sprintf("%s (%.1f%%)", r.Name, r.Score*100)
}

// Top returns the n strongest categories, descending, ties in canonical order.
func Top(s types.EmotionScores, n int) []Ranked {
	ranked := make([]Ranked, 0, len(Categories))
	for _, name := range Categories {
		ranked = append(ranked, Ranked{Name: name, Score: Value(s, name)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if n < 0 {
		n = 0
	}
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
