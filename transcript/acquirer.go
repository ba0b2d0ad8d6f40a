// Package transcript turns a video id into source text: cached transcript, then
// captions in the preferred language, then English captions, then generative
// transcription.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-tonescope/captions"
	"go-tonescope/types"
)

const (
	// DefaultTTL is how long a transcript stays cached.
	DefaultTTL = 30 * 24 * time.Hour

	FallbackLang = "en"
)

// ErrNoTranscript means every acquisition strategy came back empty.
var ErrNoTranscript = errors.New("no transcript available")

// CaptionSource returns ordered caption segments for a video in one language.
type CaptionSource interface {
	Fetch(ctx context.Context, videoID, lang string) ([]captions.Segment, error)
}

// Generator produces a transcript when no captions exist.
type Generator interface {
	Generate(ctx context.Context, apiKey, videoID string) (string, error)
}

type Option func(*Acquirer)

func WithClock(now func() time.Time) Option {
	return func(a *Acquirer) { a.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(a *Acquirer) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Acquirer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithGenerator enables the generative fallback in Resolve.
func WithGenerator(g Generator) Option {
	return func(a *Acquirer) { a.generator = g }
}

// Acquirer owns the in-memory transcript cache. Entries are keyed by video id.
type Acquirer struct {
	captions  CaptionSource
	generator Generator
	lang      string
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger

	mu    sync.Mutex
	cache map[string]types.TranscriptCacheEntry
}

// NewAcquirer uses lang as the preferred caption language; empty means English.
func NewAcquirer(src CaptionSource, lang string, opts ...Option) *Acquirer {
	if lang == "" {
		lang = FallbackLang
	}
	a := &Acquirer{
		captions: src,
		lang:     lang,
		ttl:      DefaultTTL,
		now:      time.Now,
		logger:   zap.NewNop(),
		cache:    make(map[string]types.TranscriptCacheEntry),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire returns the cached or caption-derived transcript. ok is false when no
// captions exist; that is not an error.
func (a *Acquirer) Acquire(ctx context.Context, videoID string) (text string, ok bool) {
	if text, ok := a.cached(videoID); ok {
		return text, true
	}

	langs := []string{a.lang}
	if a.lang != FallbackLang {
		langs = append(langs, FallbackLang)
	}
	for _, lang := range langs {
		segments, err := a.captions.Fetch(ctx, videoID, lang)
		if err != nil {
			a.logger.Warn("caption fetch failed",
				zap.String("video_id", videoID), zap.String("lang", lang), zap.Error(err))
			continue
		}
		if len(segments) == 0 {
			continue
		}
		text := joinSegments(segments)
		if text == "" {
			continue
		}
		a.Store(videoID, text)
		return text, true
	}
	return "", false
}

// Resolve runs Acquire and falls back to the generator. The generated transcript
// is written through to the cache.
func (a *Acquirer) Resolve(ctx context.Context, apiKey, videoID string) (string, error) {
	if text, ok := a.Acquire(ctx, videoID); ok {
		return text, nil
	}
	if a.generator == nil {
		return "", fmt.Errorf("video %s: %w", videoID, ErrNoTranscript)
	}

	a.logger.Info("no captions, generating transcript", zap.String("video_id", videoID))
	text, err := a.generator.Generate(ctx, apiKey, videoID)
	if err != nil {
		return "", fmt.Errorf("generate transcript: %w", err)
	}
	text = normalize(text)
	if text == "" {
		return "", fmt.Errorf("video %s: %w", videoID, ErrNoTranscript)
	}
	a.Store(videoID, text)
	return text, nil
}

// Store writes a transcript into the cache with the current time.
func (a *Acquirer) Store(videoID, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache[videoID] = types.TranscriptCacheEntry{Transcript: text, Timestamp: a.now()}
}

func (a *Acquirer) cached(videoID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.cache[videoID]
	if !ok {
		return "", false
	}
	if a.now().Sub(entry.Timestamp) >= a.ttl {
		delete(a.cache, videoID)
		return "", false
	}
	return entry.Transcript, true
}

func joinSegments(segments []captions.Segment) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.Text
	}
	return normalize(strings.Join(parts, " "))
}

// normalize collapses whitespace runs to one space and trims.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
