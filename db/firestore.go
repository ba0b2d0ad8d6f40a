package db

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// Firestore caps a transaction at 500 writes.
	firestoreMaxWrites = 500
	// Firestore caps a document at 1 MiB; larger values are split into parts.
	firestorePartSize = 900 * 1024
)

// FirestoreStore keeps each key in its own document. Document ids are the
// SHA-256 of the key since keys are often URLs.
//
// A value over firestorePartSize is stored in part documents tagged with a
// write generation. The key document records the generation and part count,
// so readers never see a half-written value, and the previous generation is
// deleted after the swap.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

type kvDoc struct {
	Key        string    `firestore:"key"`
	Value      []byte    `firestore:"value"`
	Parts      int       `firestore:"parts,omitempty"`
	Generation int64     `firestore:"generation,omitempty"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

type partDoc struct {
	Key   string `firestore:"key"`
	Index int    `firestore:"index"`
	Value []byte `firestore:"value"`
}

// NewFirestoreStore initializes a Firebase app from base64 encoded service
// account credentials and returns a store over collection.
func NewFirestoreStore(ctx context.Context, encodedCreds, collection string) (*FirestoreStore, error) {
	creds, err := base64.StdEncoding.DecodeString(encodedCreds)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Firestore credentials: %w", err)
	}

	opt := option.WithCredentialsJSON(creds)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Firestore client: %w", err)
	}

	return NewFirestoreStoreWithClient(client, collection), nil
}

// NewFirestoreStoreWithClient wraps an existing client (emulator or tests).
func NewFirestoreStoreWithClient(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = "tonescope"
	}
	return &FirestoreStore{client: client, collection: collection}
}

func (s *FirestoreStore) doc(key string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(HashString(key))
}

func partID(key string, generation int64, index int) string {
	return fmt.Sprintf("%s-%d-%d", HashString(key), generation, index)
}

func (s *FirestoreStore) partRefs(d kvDoc) []*firestore.DocumentRef {
	refs := make([]*firestore.DocumentRef, d.Parts)
	for i := range refs {
		refs[i] = s.client.Collection(s.collection).Doc(partID(d.Key, d.Generation, i))
	}
	return refs
}

// splitValue cuts v into consecutive slices of at most size bytes.
func splitValue(v []byte, size int) [][]byte {
	var parts [][]byte
	for len(v) > size {
		parts = append(parts, v[:size])
		v = v[size:]
	}
	return append(parts, v)
}

func (s *FirestoreStore) readParts(ctx context.Context, d kvDoc) ([]byte, error) {
	snaps, err := s.client.GetAll(ctx, s.partRefs(d))
	if err != nil {
		return nil, fmt.Errorf("firestore get parts of %s: %w", d.Key, err)
	}
	var out []byte
	for i, snap := range snaps {
		if !snap.Exists() {
			return nil, fmt.Errorf("firestore part %d of %s is missing", i, d.Key)
		}
		var p partDoc
		if err := snap.DataTo(&p); err != nil {
			return nil, fmt.Errorf("firestore decode %s: %w", snap.Ref.ID, err)
		}
		out = append(out, p.Value...)
	}
	return out, nil
}

func (s *FirestoreStore) Get(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	refs := make([]*firestore.DocumentRef, len(keys))
	for i, k := range keys {
		refs[i] = s.doc(k)
	}

	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("firestore get: %w", err)
	}

	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var d kvDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("firestore decode %s: %w", snap.Ref.ID, err)
		}
		if d.Parts == 0 {
			out[d.Key] = d.Value
			continue
		}
		v, err := s.readParts(ctx, d)
		if err != nil {
			return nil, err
		}
		out[d.Key] = v
	}
	return out, nil
}

func (s *FirestoreStore) Set(ctx context.Context, items map[string][]byte) error {
	now := time.Now()
	generation := now.UnixNano()

	large := make(map[string][][]byte)
	for k, v := range items {
		if len(v) > firestorePartSize {
			large[k] = splitValue(v, firestorePartSize)
		}
	}
	for k, parts := range large {
		refs := s.partRefs(kvDoc{Key: k, Parts: len(parts), Generation: generation})
		for i, p := range parts {
			if _, err := refs[i].Set(ctx, partDoc{Key: k, Index: i, Value: p}); err != nil {
				return fmt.Errorf("failed to set part %d of %s: %w", i, k, err)
			}
		}
	}

	var stale []*firestore.DocumentRef
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		stale = stale[:0]
		for k := range items {
			snap, err := tx.Get(s.doc(k))
			if status.Code(err) == codes.NotFound {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", k, err)
			}
			var prev kvDoc
			if err := snap.DataTo(&prev); err != nil {
				return fmt.Errorf("firestore decode %s: %w", snap.Ref.ID, err)
			}
			stale = append(stale, s.partRefs(prev)...)
		}

		for k, v := range items {
			d := kvDoc{Key: k, UpdatedAt: now}
			if parts, ok := large[k]; ok {
				d.Parts, d.Generation = len(parts), generation
			} else {
				d.Value = v
			}
			if err := tx.Set(s.doc(k), d); err != nil {
				return fmt.Errorf("failed to set %s: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.deleteRefs(ctx, stale)
}

func (s *FirestoreStore) Remove(ctx context.Context, keys []string) error {
	refs := make([]*firestore.DocumentRef, len(keys))
	for i, k := range keys {
		refs[i] = s.doc(k)
	}
	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return fmt.Errorf("firestore get: %w", err)
	}
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var d kvDoc
		if err := snap.DataTo(&d); err != nil {
			return fmt.Errorf("firestore decode %s: %w", snap.Ref.ID, err)
		}
		refs = append(refs, s.partRefs(d)...)
	}
	return s.deleteRefs(ctx, refs)
}

func (s *FirestoreStore) Clear(ctx context.Context) error {
	var refs []*firestore.DocumentRef

	iter := s.client.Collection(s.collection).DocumentRefs(ctx)
	for {
		ref, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("error iterating documents: %w", err)
		}
		refs = append(refs, ref)
	}
	return s.deleteRefs(ctx, refs)
}

func (s *FirestoreStore) deleteRefs(ctx context.Context, refs []*firestore.DocumentRef) error {
	for start := 0; start < len(refs); start += firestoreMaxWrites {
		chunk := refs[start:min(start+firestoreMaxWrites, len(refs))]
		err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			for _, ref := range chunk {
				if err := tx.Delete(ref); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("firestore delete: %w", err)
		}
	}
	return nil
}

// Close closes the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
