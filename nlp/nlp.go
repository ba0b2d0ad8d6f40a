// Package nlp cross-checks classifier output against Cloud Natural Language
// document sentiment.
package nlp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	language "cloud.google.com/go/language/apiv2"
	"cloud.google.com/go/language/apiv2/languagepb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go-tonescope/types"
)

// Analyzer reports document-level sentiment for plain text.
type Analyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) (types.Sentiment, error)
}

type analyzeFunc func(context.Context, *languagepb.AnalyzeSentimentRequest) (*languagepb.AnalyzeSentimentResponse, error)

// Client is an Analyzer backed by the Natural Language API.
type Client struct {
	analyze analyzeFunc
	close   func() error
}

// NewClient builds a client from base64-encoded service account JSON.
func NewClient(ctx context.Context, encodedCreds string) (*Client, error) {
	if encodedCreds == "" {
		return nil, errors.New("natural language credentials are empty")
	}
	creds, err := base64.StdEncoding.DecodeString(encodedCreds)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Natural Language credentials: %w", err)
	}

	lc, err := language.NewClient(ctx, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create Natural Language client: %w", err)
	}
	return &Client{
		analyze: func(ctx context.Context, req *languagepb.AnalyzeSentimentRequest) (*languagepb.AnalyzeSentimentResponse, error) {
			return lc.AnalyzeSentiment(ctx, req)
		},
		close: lc.Close,
	}, nil
}

func (c *Client) AnalyzeSentiment(ctx context.Context, text string) (types.Sentiment, error) {
	var sentiment types.Sentiment
	if strings.TrimSpace(text) == "" {
		return sentiment, nil
	}

	req := &languagepb.AnalyzeSentimentRequest{
		Document: &languagepb.Document{
			Source: &languagepb.Document_Content{
				Content: text,
			},
			Type: languagepb.Document_PLAIN_TEXT,
		},
		EncodingType: languagepb.EncodingType_UTF8,
	}

	resp, err := c.analyze(ctx, req)
	if err != nil {
		return sentiment, fmt.Errorf("AnalyzeSentiment request error: %w", transportError(err))
	}
	if ds := resp.GetDocumentSentiment(); ds != nil {
		sentiment.Score = ds.GetScore()
		sentiment.Magnitude = ds.GetMagnitude()
	}
	return sentiment, nil
}

// transportError turns a gRPC status into a TransportError. Other errors pass
// through.
func transportError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := st.Message()
	switch st.Code() {
	case codes.DeadlineExceeded:
		msg = "timeout"
	case codes.OK:
		return err
	}
	if msg == "" {
		msg = st.Code().String()
	}
	return &types.TransportError{Service: "natural-language", Message: msg}
}

func (c *Client) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// Agrees reports whether the document sentiment points the same way as the
// framing. Neutral framing agrees with any score within tolerance of zero.
func Agrees(s types.Sentiment, framing types.Framing, tolerance float32) bool {
	switch framing {
	case types.FramingRespectful:
		return s.Score > -tolerance
	case types.FramingContemptuous:
		return s.Score < tolerance
	default:
		return s.Score >= -tolerance && s.Score <= tolerance
	}
}
