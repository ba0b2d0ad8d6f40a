// Package classifier asks a structured-output model for per-category emotion
// magnitudes and derives the framing score and label from them.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"go-tonescope/emotion"
	"go-tonescope/llm"
	"go-tonescope/types"
)

// DefaultModel is used when none is configured.
const DefaultModel = openai.GPT4oMini

const temperature = 0.2

// reply is the schema the model is held to.
type reply struct {
	EmotionScores types.EmotionScores `json:"emotion_scores" jsonschema:"description=Magnitude 0.000-1.000 for every category"`
	Explanation   string              `json:"explanation" jsonschema:"description=2-3 sentences (at most 45 words) naming the dominant feelings and why"`
}

// looseReply is what we actually decode, so that absent or out-of-range values can
// be normalized instead of rejected.
type looseReply struct {
	EmotionScores map[string]float64 `json:"emotion_scores"`
	Explanation   string             `json:"explanation"`
}

type Classifier struct {
	llm    *llm.Client
	model  string
	schema json.RawMessage
	logger *zap.Logger
}

func New(client *llm.Client, model string, logger *zap.Logger) (*Classifier, error) {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	schema, err := generateSchema[reply]()
	if err != nil {
		return nil, fmt.Errorf("failed to build response schema: %w", err)
	}
	return &Classifier{llm: client, model: model, schema: schema, logger: logger}, nil
}

var systemPrompt = strings.TrimSpace(`
You are a JSON-only emotion classifier modelled on the GoEmotions taxonomy.
Reply with exactly one JSON object with two keys:
  "emotion_scores": an object with all 28 category keys below, each a number from 0.000 to 1.000
  "explanation":    2-3 sentences (no more than 45 words) naming the dominant feelings and why
No markdown. No other keys.`)

func userPrompt(text string) string {
	quoted := make([]string, len(emotion.Categories))
	for i, name := range emotion.Categories {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	return fmt.Sprintf(`Score the emotions expressed in the text below.

Categories (%d): [%s]

Here is the text:
"""%s"""`, len(quoted), strings.Join(quoted, ","), text)
}

// Classify scores text. apiKey is the OpenAI credential for this call.
func (c *Classifier) Classify(ctx context.Context, apiKey, text string) (types.ToneResult, error) {
	raw, err := c.llm.Chat(ctx, apiKey, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "emotion_analysis",
				Schema: c.schema,
				Strict: true,
			},
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(text)},
		},
	})
	if err != nil {
		return types.ToneResult{}, fmt.Errorf("classify: %w", err)
	}

	result, err := Parse(raw)
	if err != nil {
		c.logger.Error("model output was not valid JSON", zap.String("raw", raw), zap.Error(err))
		return types.ToneResult{}, fmt.Errorf("classify: %w", err)
	}
	return result, nil
}

// Parse decodes the model's JSON reply and derives framing from it.
func Parse(raw string) (types.ToneResult, error) {
	var parsed looseReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return types.ToneResult{}, fmt.Errorf("%w: %v", types.ErrInvalidModelOutput, err)
	}
	if parsed.EmotionScores == nil {
		return types.ToneResult{}, fmt.Errorf("%w: missing emotion_scores", types.ErrInvalidModelOutput)
	}

	scores := emotion.FromMap(parsed.EmotionScores)
	score := emotion.FramingScore(scores)
	return types.ToneResult{
		Framing:       emotion.Label(score),
		FramingScore:  score,
		EmotionScores: scores,
		Explanation:   strings.TrimSpace(parsed.Explanation),
	}, nil
}
