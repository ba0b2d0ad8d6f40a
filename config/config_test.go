package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-tonescope/db"
)

var allVars = []string{
	"PORT", "OPENAI_API_KEY", "PERPLEXITY_API_KEY", "CREDENTIAL_SALT", "CLASSIFIER_MODEL",
	"SUMMARY_MODEL", "RECOMMEND_MODEL", "TRANSCRIBE_MODEL", "OPENAI_BASE_URL", "RECOMMEND_BASE_URL",
	"AUDIO_URL_TEMPLATE", "CAPTION_LANG", "CACHE_TTL", "HTTP_TIMEOUT", "LLM_RPS", "STORE_BACKEND",
	"SQLITE_PATH", "FIREBASE_CREDENTIALS", "FIRESTORE_COLLECTION", "NATURAL_LANGUAGE_CREDENTIALS",
	"PRUNE_SCHEDULE", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	for _, k := range allVars {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "tone-scope-salt", c.CredentialSalt)
	assert.Equal(t, "gpt-4o-mini", c.ClassifierModel)
	assert.Equal(t, "sonar-pro", c.RecommendModel)
	assert.Equal(t, "https://api.perplexity.ai", c.RecommendBaseURL)
	assert.Equal(t, "whisper-1", c.TranscribeModel)
	assert.Equal(t, "en", c.CaptionLang)
	assert.Equal(t, 720*time.Hour, c.CacheTTL)
	assert.Equal(t, 60*time.Second, c.HTTPTimeout)
	assert.Equal(t, 2.0, c.LLMRPS)
	assert.Equal(t, db.BackendSQLite, c.StoreBackend)
	assert.Contains(t, c.SQLitePath, "tonescope.db")
	assert.Equal(t, "0 * * * *", c.PruneSchedule)
	assert.Equal(t, "info", c.LogLevel)
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("CACHE_TTL", "24h")
	t.Setenv("LLM_RPS", "0")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("CAPTION_LANG", "de")
	t.Setenv("OPENAI_API_KEY", "sk")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9000", c.Port)
	assert.Equal(t, 24*time.Hour, c.CacheTTL)
	assert.Zero(t, c.LLMRPS)
	assert.Equal(t, db.BackendMemory, c.StoreBackend)
	assert.Equal(t, "de", c.CaptionLang)
	assert.Equal(t, "sk", c.OpenAIKey)
	assert.Equal(t, db.Options{
		Backend:             "memory",
		SQLitePath:          c.SQLitePath,
		FirestoreCollection: "tonescope",
	}, c.StoreOptions())
}

func TestInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"bad duration":         {"CACHE_TTL": "soon"},
		"negative duration":    {"HTTP_TIMEOUT": "-1s"},
		"bad rps":              {"LLM_RPS": "fast"},
		"negative rps":         {"LLM_RPS": "-2"},
		"unknown backend":      {"STORE_BACKEND": "redis"},
		"firestore no creds":   {"STORE_BACKEND": "firestore"},
		"malformed cron":       {"PRUNE_SCHEDULE": "every hour"},
		"cron too many fields": {"PRUNE_SCHEDULE": "0 0 * * * * *"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
