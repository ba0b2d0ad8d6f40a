// Package db is the durable key-value store behind the credential store and the
// result cache. Values are opaque bytes; callers own their encoding.
package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Store is a flat key-value namespace. Get returns only the keys that exist.
type Store interface {
	Get(ctx context.Context, keys []string) (map[string][]byte, error)
	Set(ctx context.Context, items map[string][]byte) error
	Remove(ctx context.Context, keys []string) error
	Clear(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend string

	SQLitePath string

	// Base64 encoded service account JSON.
	FirebaseCredentials string
	FirestoreCollection string
}

// Open returns the backend named in opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		return OpenSQLite(opts.SQLitePath)
	case BackendFirestore:
		return NewFirestoreStore(ctx, opts.FirebaseCredentials, opts.FirestoreCollection)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// HashString hashes a given string using SHA-256 and returns its hex representation.
func HashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
