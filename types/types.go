package types

import "time"

// Framing is the coarse three-way verdict derived from a FramingScore.
type Framing string

const (
	FramingRespectful   Framing = "Respectful"
	FramingNeutral      Framing = "Neutral"
	FramingContemptuous Framing = "Contemptuous"
)

// EmotionScores holds one magnitude in [0, 1] per fixed emotion category.
// The field set is the GoEmotions taxonomy plus the neutral catch-all.
type EmotionScores struct {
	Admiration     float64 `json:"admiration"`
	Amusement      float64 `json:"amusement"`
	Anger          float64 `json:"anger"`
	Annoyance      float64 `json:"annoyance"`
	Approval       float64 `json:"approval"`
	Caring         float64 `json:"caring"`
	Confusion      float64 `json:"confusion"`
	Curiosity      float64 `json:"curiosity"`
	Desire         float64 `json:"desire"`
	Disappointment float64 `json:"disappointment"`
	Disapproval    float64 `json:"disapproval"`
	Disgust        float64 `json:"disgust"`
	Embarrassment  float64 `json:"embarrassment"`
	Excitement     float64 `json:"excitement"`
	Fear           float64 `json:"fear"`
	Gratitude      float64 `json:"gratitude"`
	Grief          float64 `json:"grief"`
	Joy            float64 `json:"joy"`
	Love           float64 `json:"love"`
	Nervousness    float64 `json:"nervousness"`
	Optimism       float64 `json:"optimism"`
	Pride          float64 `json:"pride"`
	Realization    float64 `json:"realization"`
	Relief         float64 `json:"relief"`
	Remorse        float64 `json:"remorse"`
	Sadness        float64 `json:"sadness"`
	Surprise       float64 `json:"surprise"`
	Neutral        float64 `json:"neutral"`
}

// ToneResult is the classifier's judgment of one piece of source text.
type ToneResult struct {
	Framing       Framing       `json:"framing"`
	FramingScore  float64       `json:"framing_score"`
	EmotionScores EmotionScores `json:"emotion_scores"`
	Explanation   string        `json:"explanation"`
}

// Recommendation is one contrasting source suggested by the retriever.
type Recommendation struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// AnalysisResult is the composite unit cached and returned to callers.
type AnalysisResult struct {
	ToneResult
	Recommendations []Recommendation `json:"recommendations"`

	// Only set when the Natural Language cross-check is configured.
	DocumentSentiment *Sentiment `json:"document_sentiment,omitempty"`
}

// CacheEntry wraps an AnalysisResult with its creation time and lifetime.
type CacheEntry struct {
	Data      AnalysisResult `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  time.Duration  `json:"duration"`
}

// Expired reports whether the entry is no longer valid at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return now.Sub(e.Timestamp) >= e.Duration
}

// TranscriptCacheEntry is a memoized transcript keyed by video id.
type TranscriptCacheEntry struct {
	Transcript string    `json:"transcript"`
	Timestamp  time.Time `json:"timestamp"`
}
