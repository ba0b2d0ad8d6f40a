package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"go-tonescope/analysis"
	"go-tonescope/cache"
	"go-tonescope/captions"
	"go-tonescope/classifier"
	"go-tonescope/config"
	"go-tonescope/credentials"
	"go-tonescope/db"
	"go-tonescope/llm"
	"go-tonescope/logging"
	"go-tonescope/nlp"
	"go-tonescope/recommend"
	"go-tonescope/summarization"
	"go-tonescope/transcript"
)

// app holds everything a command needs. close releases it in reverse order.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   db.Store
	cache   *cache.Cache
	creds   *credentials.Store
	service *analysis.Service

	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("shutdown", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// newApp loads configuration and opens storage. The analysis pipeline is only
// built when withPipeline is set.
func newApp(ctx context.Context, withPipeline bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	a.store, err = db.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}
	a.closers = append(a.closers, a.store.Close)
	logger.Info("store opened", zap.String("backend", cfg.StoreBackend))

	a.creds = credentials.New(a.store, cfg.CredentialSalt, logger.Named("credentials"))
	if err := a.creds.Load(ctx); err != nil {
		logger.Warn("stored credentials unreadable", zap.Error(err))
	}
	a.creds.Seed(credentials.Keys{OpenAI: cfg.OpenAIKey, Perplexity: cfg.PerplexityKey})

	a.cache, err = cache.New(ctx, a.store,
		cache.WithDefaultDuration(cfg.CacheTTL),
		cache.WithLogger(logger.Named("cache")))
	if err != nil {
		a.close()
		return nil, err
	}

	if withPipeline {
		if err := a.buildPipeline(ctx); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) buildPipeline(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	openaiClient := llm.New("OpenAI", llm.Options{
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.HTTPTimeout,
		RPS:     cfg.LLMRPS,
	})
	perplexityClient := llm.New("Perplexity", llm.Options{
		BaseURL: cfg.RecommendBaseURL,
		Timeout: cfg.HTTPTimeout,
		RPS:     cfg.LLMRPS,
	})

	cls, err := classifier.New(openaiClient, cfg.ClassifierModel, logger.Named("classifier"))
	if err != nil {
		return err
	}

	acqOpts := []transcript.Option{transcript.WithLogger(logger.Named("transcript"))}
	if gen := transcriptGenerator(cfg, openaiClient, logger); gen != nil {
		acqOpts = append(acqOpts, transcript.WithGenerator(gen))
	}
	acquirer := transcript.NewAcquirer(captions.NewClient("", cfg.HTTPTimeout), cfg.CaptionLang, acqOpts...)

	deps := analysis.Deps{
		Cache:       a.cache,
		Credentials: a.creds,
		Transcripts: acquirer,
		Classifier:  cls,
		Retriever:   recommend.New(perplexityClient, cfg.RecommendModel, logger.Named("recommend")),
		Summarizer:  summarization.New(openaiClient, cfg.SummaryModel),
		CacheTTL:    cfg.CacheTTL,
		Logger:      logger.Named("analysis"),
	}

	if cfg.NaturalLanguageCredentials != "" {
		nl, err := nlp.NewClient(ctx, cfg.NaturalLanguageCredentials)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, nl.Close)
		deps.Sentiment = nl
		logger.Info("document sentiment cross-check enabled")
	}

	a.service = analysis.New(deps)
	return nil
}

// transcriptGenerator returns nil when no audio source is configured, leaving
// videos without captions to fail with transcript.ErrNoTranscript.
func transcriptGenerator(cfg *config.Config, client *llm.Client, logger *zap.Logger) transcript.Generator {
	if cfg.AudioURLTemplate == "" {
		logger.Warn("AUDIO_URL_TEMPLATE not set, generative transcription disabled")
		return nil
	}
	return transcript.NewWhisper(client, cfg.TranscribeModel, cfg.AudioURLTemplate, cfg.HTTPTimeout)
}
