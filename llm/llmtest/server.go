// Package llmtest provides a fake OpenAI-compatible upstream for tests.
package llmtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Reply is what the fake answers a chat completion with. A Status >= 400 produces
// an OpenAI style error body carrying ErrorMessage (omitted when empty).
type Reply struct {
	Status       int
	Content      string
	ErrorMessage string
	NoChoices    bool
	Delay        time.Duration
}

// Request mirrors the parts of a chat completion request tests assert on.
// go-openai's own request type cannot be decoded because its schema field is an
// interface.
type Request struct {
	Model          string                         `json:"model"`
	Temperature    float32                        `json:"temperature"`
	Messages       []openai.ChatCompletionMessage `json:"messages"`
	ResponseFormat *ResponseFormat                `json:"response_format,omitempty"`
}

type ResponseFormat struct {
	Type       string `json:"type"`
	JSONSchema *struct {
		Name   string          `json:"name"`
		Strict bool            `json:"strict"`
		Schema json.RawMessage `json:"schema"`
	} `json:"json_schema,omitempty"`
}

// Prompt joins every message's content.
func (r Request) Prompt() string {
	parts := make([]string, len(r.Messages))
	for i, m := range r.Messages {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n")
}

// Call records one chat completion request the fake received.
type Call struct {
	Auth    string
	Request Request
}

// Server is an httptest server speaking /chat/completions and /audio/transcriptions.
type Server struct {
	*httptest.Server

	mu              sync.Mutex
	calls           []Call
	transcriptCalls int
	handler         func(Request) Reply

	// Transcript is returned by /audio/transcriptions.
	Transcript string
}

// NewServer starts a fake; it is closed when the test ends.
func NewServer(t testing.TB, handler func(req Request) Reply) *Server {
	t.Helper()
	s := &Server{handler: handler}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Text is a handler that always answers with content.
func Text(content string) func(Request) Reply {
	return func(Request) Reply { return Reply{Content: content} }
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		s.serveChat(w, r)
	case strings.HasSuffix(r.URL.Path, "/audio/transcriptions"):
		s.mu.Lock()
		s.transcriptCalls++
		text := s.Transcript
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"text": text})
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveChat(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Auth: r.Header.Get("Authorization"), Request: req})
	s.mu.Unlock()

	reply := s.handler(req)
	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if reply.Status >= http.StatusBadRequest {
		w.WriteHeader(reply.Status)
		if reply.ErrorMessage != "" {
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": reply.ErrorMessage, "type": "invalid_request_error"},
			})
		}
		return
	}

	resp := openai.ChatCompletionResponse{
		ID:     "chatcmpl-test",
		Object: "chat.completion",
		Model:  req.Model,
	}
	if !reply.NoChoices {
		resp.Choices = []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply.Content},
			FinishReason: openai.FinishReasonStop,
		}}
	}
	json.NewEncoder(w).Encode(resp)
}

// Calls returns every chat request received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount is len(Calls()).
func (s *Server) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// TranscriptCalls counts /audio/transcriptions requests.
func (s *Server) TranscriptCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcriptCalls
}
