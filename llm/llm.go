// Package llm wraps go-openai for every chat-completion style upstream the pipeline
// talks to. It owns per-call timeouts, client-side rate limiting and the mapping of
// upstream failures onto types.TransportError.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"go-tonescope/types"
)

// Options configures one upstream endpoint.
type Options struct {
	// BaseURL defaults to the OpenAI v1 API.
	BaseURL string

	// Timeout bounds each call. Zero means 60s.
	Timeout time.Duration

	// RPS caps outgoing calls. Zero disables the limiter.
	RPS float64

	HTTPClient *http.Client
}

// Client talks to one OpenAI-compatible endpoint. API keys are supplied per call
// because credentials can change at runtime.
type Client struct {
	service    string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter

	mu      sync.Mutex
	clients map[string]*openai.Client
}

// New returns a client; service names the upstream in errors and logs.
func New(service string, opts Options) *Client {
	c := &Client{
		service:    service,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		timeout:    opts.Timeout,
		httpClient: opts.HTTPClient,
		clients:    make(map[string]*openai.Client),
	}
	if c.timeout <= 0 {
		c.timeout = 60 * time.Second
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if opts.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}
	return c
}

// Service is the upstream name used in errors.
func (c *Client) Service() string { return c.service }

func (c *Client) api(key string) *openai.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, ok := c.clients[key]; ok {
		return cl
	}
	config := openai.DefaultConfig(key)
	if c.baseURL != "" {
		config.BaseURL = c.baseURL
	}
	config.HTTPClient = c.httpClient

	cl := openai.NewClientWithConfig(config)
	// Keys rotate rarely; keep only the current one.
	c.clients = map[string]*openai.Client{key: cl}
	return cl
}

func (c *Client) begin(ctx context.Context, key string) (context.Context, context.CancelFunc, error) {
	if key == "" {
		return nil, nil, fmt.Errorf("%s: %w", c.service, types.ErrMissingCredential)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			cancel()
			return nil, nil, &types.TransportError{Service: c.service, Message: "timeout"}
		}
	}
	return ctx, cancel, nil
}

// Chat sends req and returns the first choice's message content.
func (c *Client) Chat(ctx context.Context, key string, req openai.ChatCompletionRequest) (string, error) {
	ctx, cancel, err := c.begin(ctx, key)
	if err != nil {
		return "", err
	}
	defer cancel()

	resp, err := c.api(key).CreateChatCompletion(ctx, req)
	if err != nil {
		return "", c.wrapError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices: %w", c.service, types.ErrInvalidModelOutput)
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe runs an audio transcription request and returns its text.
func (c *Client) Transcribe(ctx context.Context, key string, req openai.AudioRequest) (string, error) {
	ctx, cancel, err := c.begin(ctx, key)
	if err != nil {
		return "", err
	}
	defer cancel()

	resp, err := c.api(key).CreateTranscription(ctx, req)
	if err != nil {
		return "", c.wrapError(ctx, err)
	}
	return resp.Text, nil
}

// wrapError maps go-openai failures onto TransportError, preferring the upstream's
// own message over the HTTP status text.
func (c *Client) wrapError(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.HTTPStatusCode)
		}
		return &types.TransportError{Service: c.service, StatusCode: apiErr.HTTPStatusCode, Message: msg}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &types.TransportError{
			Service:    c.service,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    http.StatusText(reqErr.HTTPStatusCode),
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return &types.TransportError{Service: c.service, Message: "timeout"}
	}
	return &types.TransportError{Service: c.service, Message: err.Error()}
}
