// Package credentials holds the two upstream API keys for the process.
//
// Keys are obfuscated at rest with a salt-derived XOR byte. This is cosmetic: anyone
// with the store and the salt can read them back. It is not a security boundary.
package credentials

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"go-tonescope/db"
	"go-tonescope/types"
)

// DefaultSalt matches the salt existing installations were written with.
const DefaultSalt = "tone-scope-salt"

// Storage keys for the obfuscated values.
const (
	OpenAIStorageKey     = "encryptedOpenAIKey"
	PerplexityStorageKey = "encryptedPerplexityKey"
)

// Keys is one consistent snapshot of both credentials.
type Keys struct {
	OpenAI     string
	Perplexity string
}

// Complete reports whether both keys are present.
func (k Keys) Complete() bool {
	return k.OpenAI != "" && k.Perplexity != ""
}

// Store is the process-wide credential holder. Reads take a snapshot under a read
// lock; writes happen at startup and on explicit updates.
type Store struct {
	mu   sync.RWMutex
	keys Keys

	kv     db.Store
	salt   string
	logger *zap.Logger
}

func New(kv db.Store, salt string, logger *zap.Logger) *Store {
	if salt == "" {
		salt = DefaultSalt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, salt: salt, logger: logger}
}

// Load reads and decodes whatever keys are in durable storage. Absent keys leave
// the in-memory value untouched.
func (s *Store) Load(ctx context.Context) error {
	stored, err := s.kv.Get(ctx, []string{OpenAIStorageKey, PerplexityStorageKey})
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := stored[OpenAIStorageKey]; ok {
		key, err := Deobfuscate(string(v), s.salt)
		if err != nil {
			return fmt.Errorf("stored OpenAI key: %w", err)
		}
		s.keys.OpenAI = key
	}
	if v, ok := stored[PerplexityStorageKey]; ok {
		key, err := Deobfuscate(string(v), s.salt)
		if err != nil {
			return fmt.Errorf("stored Perplexity key: %w", err)
		}
		s.keys.Perplexity = key
	}
	return nil
}

// Seed fills missing keys from another source (environment) without persisting.
func (s *Store) Seed(k Keys) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys.OpenAI == "" {
		s.keys.OpenAI = strings.TrimSpace(k.OpenAI)
	}
	if s.keys.Perplexity == "" {
		s.keys.Perplexity = strings.TrimSpace(k.Perplexity)
	}
}

// Keys returns the current snapshot.
func (s *Store) Keys() Keys {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys
}

// Ensure returns a complete key set, re-reading durable storage once if the
// in-memory copy is incomplete.
func (s *Store) Ensure(ctx context.Context) (Keys, error) {
	if k := s.Keys(); k.Complete() {
		return k, nil
	}

	s.logger.Debug("credentials incomplete, reloading from storage")
	if err := s.Load(ctx); err != nil {
		s.logger.Warn("credential reload failed", zap.Error(err))
	}

	k := s.Keys()
	if !k.Complete() {
		return k, fmt.Errorf("API keys not found, store them first: %w", types.ErrMissingCredential)
	}
	return k, nil
}

// Update persists both keys obfuscated and then swaps them into memory.
func (s *Store) Update(ctx context.Context, openAIKey, perplexityKey string) error {
	openAIKey = strings.TrimSpace(openAIKey)
	perplexityKey = strings.TrimSpace(perplexityKey)
	if openAIKey == "" || perplexityKey == "" {
		return fmt.Errorf("both keys are required: %w", types.ErrMissingCredential)
	}

	err := s.kv.Set(ctx, map[string][]byte{
		OpenAIStorageKey:     []byte(Obfuscate(openAIKey, s.salt)),
		PerplexityStorageKey: []byte(Obfuscate(perplexityKey, s.salt)),
	})
	if err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	s.mu.Lock()
	s.keys = Keys{OpenAI: openAIKey, Perplexity: perplexityKey}
	s.mu.Unlock()

	s.logger.Info("credentials updated")
	return nil
}

func saltByte(salt string) byte {
	var b byte
	for i := 0; i < len(salt); i++ {
		b ^= salt[i]
	}
	return b
}

// Obfuscate XORs every byte of text with the salt's folded byte and hex encodes it.
func Obfuscate(text, salt string) string {
	k := saltByte(salt)
	out := make([]byte, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = text[i] ^ k
	}
	return hex.EncodeToString(out)
}

// Deobfuscate reverses Obfuscate.
func Deobfuscate(encoded, salt string) (string, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("malformed obfuscated value: %w", err)
	}
	k := saltByte(salt)
	for i := range raw {
		raw[i] ^= k
	}
	return string(raw), nil
}
