package summarization

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"go-tonescope/llm"
)

const maxTranscriptChars = 3000 // Rough character limit for prompt

// Summarizer produces a short summary of a transcript for use as retrieval context.
type Summarizer struct {
	llm   *llm.Client
	model string
}

func New(client *llm.Client, model string) *Summarizer {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Summarizer{llm: client, model: model}
}

// Summarize sends the first part of transcript to the model and asks for one or
// two sentences.
func (s *Summarizer) Summarize(ctx context.Context, apiKey, transcript string) (string, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", nil
	}
	if len(transcript) > maxTranscriptChars {
		transcript = truncate(transcript, maxTranscriptChars)
	}

	content, err := s.llm.Chat(ctx, apiKey, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a helpful assistant. Summarize the following transcript in 1-2 sentences (max 50 words).",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Transcript:\n\"\"\"%s\"\"\"", transcript),
			},
		},
		Temperature: 0.2, // Lower temperature for more focused summary
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeText,
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarize transcript: %w", err)
	}

	return strings.TrimSpace(content), nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
