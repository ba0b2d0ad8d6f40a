package types

// Sentiment is the document-level polarity reported by Cloud Natural Language.
type Sentiment struct {
	Magnitude float32 `firestore:"magnitude" json:"magnitude"`
	Score     float32 `firestore:"score" json:"score"`
}
