// Package config reads runtime settings from the environment, loading a .env file
// first when one exists.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"go-tonescope/db"
)

type Config struct {
	Port string

	OpenAIKey      string
	PerplexityKey  string
	CredentialSalt string

	ClassifierModel  string
	SummaryModel     string
	RecommendModel   string
	TranscribeModel  string
	OpenAIBaseURL    string
	RecommendBaseURL string
	AudioURLTemplate string
	CaptionLang      string

	CacheTTL    time.Duration
	HTTPTimeout time.Duration
	LLMRPS      float64

	StoreBackend        string
	SQLitePath          string
	FirebaseCredentials string
	FirestoreCollection string

	NaturalLanguageCredentials string

	PruneSchedule string

	LogLevel  string
	LogFormat string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the process environment only.
func FromEnv() (*Config, error) {
	c := &Config{
		Port:                       os.Getenv("PORT"),
		OpenAIKey:                  os.Getenv("OPENAI_API_KEY"),
		PerplexityKey:              os.Getenv("PERPLEXITY_API_KEY"),
		CredentialSalt:             os.Getenv("CREDENTIAL_SALT"),
		ClassifierModel:            os.Getenv("CLASSIFIER_MODEL"),
		SummaryModel:               os.Getenv("SUMMARY_MODEL"),
		RecommendModel:             os.Getenv("RECOMMEND_MODEL"),
		TranscribeModel:            os.Getenv("TRANSCRIBE_MODEL"),
		OpenAIBaseURL:              os.Getenv("OPENAI_BASE_URL"),
		RecommendBaseURL:           os.Getenv("RECOMMEND_BASE_URL"),
		AudioURLTemplate:           os.Getenv("AUDIO_URL_TEMPLATE"),
		CaptionLang:                os.Getenv("CAPTION_LANG"),
		StoreBackend:               os.Getenv("STORE_BACKEND"),
		SQLitePath:                 os.Getenv("SQLITE_PATH"),
		FirebaseCredentials:        os.Getenv("FIREBASE_CREDENTIALS"),
		FirestoreCollection:        os.Getenv("FIRESTORE_COLLECTION"),
		NaturalLanguageCredentials: os.Getenv("NATURAL_LANGUAGE_CREDENTIALS"),
		PruneSchedule:              os.Getenv("PRUNE_SCHEDULE"),
		LogLevel:                   os.Getenv("LOG_LEVEL"),
		LogFormat:                  os.Getenv("LOG_FORMAT"),
	}

	var err error
	if c.CacheTTL, err = durationEnv("CACHE_TTL"); err != nil {
		return nil, err
	}
	if c.HTTPTimeout, err = durationEnv("HTTP_TIMEOUT"); err != nil {
		return nil, err
	}
	if v := os.Getenv("LLM_RPS"); v != "" {
		if c.LLMRPS, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("LLM_RPS: %w", err)
		}
	} else {
		c.LLMRPS = 2
	}

	c.applyDefaults()
	return c, c.Validate()
}

func durationEnv(name string) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, v)
	}
	return d, nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Port, "8080")
	setDefault(&c.CredentialSalt, "tone-scope-salt")
	setDefault(&c.ClassifierModel, "gpt-4o-mini")
	setDefault(&c.SummaryModel, "gpt-4o-mini")
	setDefault(&c.RecommendModel, "sonar-pro")
	setDefault(&c.TranscribeModel, "whisper-1")
	setDefault(&c.OpenAIBaseURL, "https://api.openai.com/v1")
	setDefault(&c.RecommendBaseURL, "https://api.perplexity.ai")
	setDefault(&c.CaptionLang, "en")
	setDefault(&c.StoreBackend, db.BackendSQLite)
	setDefault(&c.FirestoreCollection, "tonescope")
	setDefault(&c.PruneSchedule, "0 * * * *")
	setDefault(&c.LogLevel, "info")
	setDefault(&c.LogFormat, "json")
	if c.SQLitePath == "" {
		c.SQLitePath = defaultSQLitePath()
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 30 * 24 * time.Hour
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 60 * time.Second
	}
}

func setDefault(field *string, v string) {
	*field = strings.TrimSpace(*field)
	if *field == "" {
		*field = v
	}
}

func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".tonescope", "tonescope.db")
	}
	return filepath.Join(home, ".tonescope", "tonescope.db")
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case db.BackendSQLite, db.BackendMemory:
	case db.BackendFirestore:
		if c.FirebaseCredentials == "" {
			return errors.New("STORE_BACKEND=firestore requires FIREBASE_CREDENTIALS")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.CacheTTL <= 0 || c.HTTPTimeout <= 0 {
		return errors.New("CACHE_TTL and HTTP_TIMEOUT must be positive")
	}
	if c.LLMRPS < 0 {
		return fmt.Errorf("LLM_RPS must not be negative, got %v", c.LLMRPS)
	}
	if _, err := cron.ParseStandard(c.PruneSchedule); err != nil {
		return fmt.Errorf("PRUNE_SCHEDULE %q: %w", c.PruneSchedule, err)
	}
	return nil
}

// StoreOptions maps the storage settings onto db.Options.
func (c *Config) StoreOptions() db.Options {
	return db.Options{
		Backend:             c.StoreBackend,
		SQLitePath:          c.SQLitePath,
		FirebaseCredentials: c.FirebaseCredentials,
		FirestoreCollection: c.FirestoreCollection,
	}
}
