// Package recommend asks a search-grounded model for sources that contrast with
// the framing of analysed content.
package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"go-tonescope/emotion"
	"go-tonescope/llm"
	"go-tonescope/types"
)

const (
	DefaultModel   = "sonar-pro"
	DefaultBaseURL = "https://api.perplexity.ai"

	excerptChars = 1000
	topEmotions  = 3
)

// Context is optional extra material for the prompt.
type Context struct {
	Title   string
	Summary string
}

type Retriever struct {
	llm      *llm.Client
	model    string
	matchers []Matcher
	logger   *zap.Logger
}

func New(client *llm.Client, model string, logger *zap.Logger) *Retriever {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{llm: client, model: model, matchers: DefaultMatchers, logger: logger}
}

// Retrieve returns recommendations in the order the model ranked them.
func (r *Retriever) Retrieve(ctx context.Context, apiKey, text string, framing types.Framing, scores types.EmotionScores, rc Context) ([]types.Recommendation, error) {
	prompt := BuildPrompt(text, framing, scores, rc)

	content, err := r.llm.Chat(ctx, apiKey, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve recommendations: %w", err)
	}

	recs, err := Parse(content, r.matchers...)
	if err != nil {
		r.logger.Warn("no recommendations in reply", zap.String("content", content))
		return nil, fmt.Errorf("retrieve recommendations: %w", err)
	}
	return recs, nil
}

// BuildPrompt renders the retrieval prompt.
func BuildPrompt(text string, framing types.Framing, scores types.EmotionScores, rc Context) string {
	top := emotion.Top(scores, topEmotions)
	names := make([]string, len(top))
	for i, e := range top {
		names[i] = e.String()
	}

	var b strings.Builder
	if t := strings.TrimSpace(rc.Title); t != "" {
		fmt.Fprintf(&b, "Title: %s\n", t)
	}
	if s := strings.TrimSpace(rc.Summary); s != "" {
		fmt.Fprintf(&b, "Summary: %s\n", s)
	}
	fmt.Fprintf(&b, "I just consumed content whose framing felt %s, with dominant emotions: %s.\n",
		strings.ToLower(string(framing)), strings.Join(names, ", "))
	fmt.Fprintf(&b, "Excerpt:\n\"\"\"%s\"\"\"\n\n", excerpt(text, excerptChars))
	b.WriteString("Give me exactly three balanced or contrasting articles or videos on the same topic, " +
		"each offering a perspective that counters this framing and these emotions.\n")
	b.WriteString("Reply with one recommendation per line and nothing else, formatted as:\n")
	b.WriteString("TITLE | URL | one-line summary")
	return b.String()
}

func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
