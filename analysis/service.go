// Package analysis runs the tone pipeline for one subject: cache, credentials,
// transcript or text, classification, retrieval, cache write.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"go-tonescope/credentials"
	"go-tonescope/nlp"
	"go-tonescope/recommend"
	"go-tonescope/transcript"
	"go-tonescope/types"
)

// ErrInvalidRequest is a message missing the fields its type needs.
var ErrInvalidRequest = errors.New("invalid request")

type ResultCache interface {
	Get(ctx context.Context, key string) (types.AnalysisResult, bool)
	Set(ctx context.Context, key string, value types.AnalysisResult, duration time.Duration) error
	Invalidate(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

type Credentials interface {
	Ensure(ctx context.Context) (credentials.Keys, error)
	Update(ctx context.Context, openAIKey, perplexityKey string) error
}

type TranscriptSource interface {
	Resolve(ctx context.Context, apiKey, videoID string) (string, error)
}

type Classifier interface {
	Classify(ctx context.Context, apiKey, text string) (types.ToneResult, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, apiKey, text string, framing types.Framing, scores types.EmotionScores, rc recommend.Context) ([]types.Recommendation, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, apiKey, transcript string) (string, error)
}

// Deps are the collaborators of a Service. Summarizer and Sentiment are optional.
type Deps struct {
	Cache       ResultCache
	Credentials Credentials
	Transcripts TranscriptSource
	Classifier  Classifier
	Retriever   Retriever
	Summarizer  Summarizer
	Sentiment   nlp.Analyzer

	// CacheTTL is passed to every cache write; zero uses the cache default.
	CacheTTL time.Duration
	Logger   *zap.Logger
}

type Service struct {
	Deps
	inflight singleflight.Group
}

func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{Deps: d}
}

// subject is what the pipeline needs once the request has been resolved.
type subject struct {
	key     string
	videoID string
	text    string
	title   string
}

// classified is the output of the first stage and the input of the second.
type classified struct {
	text  string
	tone  types.ToneResult
	rc    recommend.Context
	keys  credentials.Keys
	video bool
}

// AnalyzeVideo analyses a video by id, or by URL when videoID is empty. Results
// are cached under the video id.
func (s *Service) AnalyzeVideo(ctx context.Context, videoID, url string) (types.AnalysisResult, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		id, err := transcript.ExtractVideoID(url)
		if err != nil {
			return types.AnalysisResult{}, err
		}
		videoID = id
	}
	return s.run(ctx, subject{key: videoID, videoID: videoID})
}

// AnalyzeText analyses caller-supplied text. Results are cached under url.
func (s *Service) AnalyzeText(ctx context.Context, url, text, title string) (types.AnalysisResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return types.AnalysisResult{}, fmt.Errorf("url is required: %w", types.ErrInvalidSubjectReference)
	}
	if strings.TrimSpace(text) == "" {
		return types.AnalysisResult{}, fmt.Errorf("text is empty: %w", ErrInvalidRequest)
	}
	return s.run(ctx, subject{key: url, text: text, title: title})
}

// run deduplicates concurrent requests for the same key. The shared pipeline is
// detached from any single caller's cancellation; each caller still stops waiting
// when its own context ends.
func (s *Service) run(ctx context.Context, sub subject) (types.AnalysisResult, error) {
	log := s.Logger.With(zap.String("key", sub.key))

	if cached, ok := s.Cache.Get(ctx, sub.key); ok {
		log.Info("cache hit")
		return cached, nil
	}

	ch := s.inflight.DoChan(sub.key, func() (any, error) {
		return s.pipeline(context.WithoutCancel(ctx), sub, log)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return types.AnalysisResult{}, res.Err
		}
		if res.Shared {
			log.Debug("joined in-flight analysis")
		}
		return res.Val.(types.AnalysisResult), nil
	case <-ctx.Done():
		return types.AnalysisResult{}, ctx.Err()
	}
}

func (s *Service) pipeline(ctx context.Context, sub subject, log *zap.Logger) (types.AnalysisResult, error) {
	// A concurrent run may have finished between the caller's miss and this one
	// starting.
	if cached, ok := s.Cache.Get(ctx, sub.key); ok {
		return cached, nil
	}

	log.Debug("credential check")
	keys, err := s.Credentials.Ensure(ctx)
	if err != nil {
		return types.AnalysisResult{}, err
	}

	c, err := s.classify(ctx, sub, keys, log)
	if err != nil {
		log.Warn("classification stage failed", zap.Error(err))
		return types.AnalysisResult{}, err
	}

	result, err := s.retrieve(ctx, c, log)
	if err != nil {
		log.Warn("retrieval stage failed", zap.Error(err))
		return types.AnalysisResult{}, err
	}

	log.Debug("cache write")
	if err := s.Cache.Set(ctx, sub.key, result, s.CacheTTL); err != nil {
		// The in-memory entry is already in place; only durability failed.
		log.Error("failed to persist analysis", zap.Error(err))
	}
	return result, nil
}

// classify acquires the source text when needed and scores it.
func (s *Service) classify(ctx context.Context, sub subject, keys credentials.Keys, log *zap.Logger) (classified, error) {
	c := classified{text: sub.text, keys: keys, video: sub.videoID != ""}
	c.rc.Title = strings.TrimSpace(sub.title)

	if c.video {
		log.Debug("transcript acquisition", zap.String("video_id", sub.videoID))
		text, err := s.Transcripts.Resolve(ctx, keys.OpenAI, sub.videoID)
		if err != nil {
			return c, err
		}
		c.text = text
	}

	log.Debug("classify", zap.Int("chars", len(c.text)))
	tone, err := s.Classifier.Classify(ctx, keys.OpenAI, c.text)
	if err != nil {
		return c, err
	}
	c.tone = tone
	log.Debug("classified",
		zap.String("framing", string(tone.Framing)),
		zap.Float64("framing_score", tone.FramingScore))
	return c, nil
}

// retrieve fetches counter-perspectives for a classified subject and assembles
// the composite result.
func (s *Service) retrieve(ctx context.Context, c classified, log *zap.Logger) (types.AnalysisResult, error) {
	if c.video && s.Summarizer != nil {
		summary, err := s.Summarizer.Summarize(ctx, c.keys.OpenAI, c.text)
		if err != nil {
			log.Warn("summary failed, continuing without it", zap.Error(err))
		} else {
			c.rc.Summary = summary
		}
	}

	log.Debug("retrieve")
	recs, err := s.Retriever.Retrieve(ctx, c.keys.Perplexity, c.text, c.tone.Framing, c.tone.EmotionScores, c.rc)
	if err != nil {
		return types.AnalysisResult{}, err
	}

	result := types.AnalysisResult{ToneResult: c.tone, Recommendations: recs}

	if s.Sentiment != nil {
		sentiment, err := s.Sentiment.AnalyzeSentiment(ctx, c.text)
		if err != nil {
			log.Warn("document sentiment failed", zap.Error(err))
		} else {
			result.DocumentSentiment = &sentiment
			if !nlp.Agrees(sentiment, c.tone.Framing, sentimentTolerance) {
				log.Info("document sentiment disagrees with framing",
					zap.String("framing", string(c.tone.Framing)),
					zap.Float32("sentiment_score", sentiment.Score))
			}
		}
	}
	return result, nil
}

const sentimentTolerance = 0.25
