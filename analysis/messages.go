package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"go-tonescope/types"
)

// Handle dispatches one inbound message and wraps the outcome in a Response.
func (s *Service) Handle(ctx context.Context, msg types.Message) types.Response {
	resp, _ := s.Dispatch(ctx, msg)
	return resp
}

// Dispatch is Handle that also returns the underlying error for callers that
// need its kind.
func (s *Service) Dispatch(ctx context.Context, msg types.Message) (types.Response, error) {
	var p types.MessagePayload
	if msg.Payload != nil {
		p = *msg.Payload
	}

	var err error
	switch msg.Type {
	case types.MessageAnalyzeText:
		var result types.AnalysisResult
		result, err = s.Analyze(ctx, p)
		if err == nil {
			return types.Response{OK: true, Data: &result}, nil
		}
		s.Logger.Error("analysis error", zap.Error(err))

	case types.MessageClearCache:
		err = s.ClearCache(ctx, p.CacheKey)

	case types.MessageStoreAPIKeys:
		err = s.Credentials.Update(ctx, p.OpenAIKey, p.PerplexityKey)

	default:
		err = fmt.Errorf("unknown message type %q: %w", msg.Type, ErrInvalidRequest)
	}

	if err != nil {
		return types.Response{OK: false, Error: err.Error()}, err
	}
	return types.Response{OK: true}, nil
}

// Analyze runs the video variant when the payload names a video (by id, or by a
// bare URL) and the text variant when it carries text.
func (s *Service) Analyze(ctx context.Context, p types.MessagePayload) (types.AnalysisResult, error) {
	switch {
	case strings.TrimSpace(p.VideoID) != "":
		return s.AnalyzeVideo(ctx, p.VideoID, p.URL)
	case strings.TrimSpace(p.Text) != "":
		return s.AnalyzeText(ctx, p.URL, p.Text, p.Title)
	case strings.TrimSpace(p.URL) != "":
		// A bare URL is only meaningful if it names a video.
		return s.AnalyzeVideo(ctx, "", p.URL)
	default:
		return types.AnalysisResult{}, fmt.Errorf("videoId, text or url is required: %w", ErrInvalidRequest)
	}
}

// ClearCache drops one entry, or everything when key is empty.
func (s *Service) ClearCache(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		s.Logger.Info("clearing analysis cache")
		return s.Cache.Clear(ctx)
	}
	s.Logger.Info("invalidating cache entry", zap.String("key", key))
	return s.Cache.Invalidate(ctx, key)
}
