package types

// MessageType tags an inbound request from the UI or content collaborators.
type MessageType string

const (
	MessageAnalyzeText  MessageType = "ANALYZE_TEXT"
	MessageClearCache   MessageType = "CLEAR_CACHE"
	MessageStoreAPIKeys MessageType = "STORE_API_KEYS"
)

// Message is the tagged inbound request.
type Message struct {
	Type    MessageType     `json:"type" binding:"required"`
	Payload *MessagePayload `json:"payload,omitempty"`
}

// MessagePayload carries the union of fields any message type may use.
// ANALYZE_TEXT needs url plus either videoId or text.
type MessagePayload struct {
	URL           string `json:"url,omitempty"`
	Text          string `json:"text,omitempty"`
	VideoID       string `json:"videoId,omitempty"`
	Title         string `json:"title,omitempty"`
	CacheKey      string `json:"cacheKey,omitempty"`
	OpenAIKey     string `json:"openaiKey,omitempty"`
	PerplexityKey string `json:"perplexityKey,omitempty"`
}

// Response is the envelope returned for every message.
type Response struct {
	OK    bool            `json:"ok"`
	Data  *AnalysisResult `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}
