package db

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := OpenSQLite(":memory:")
	require.NoError(t, err)

	fileStore, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "kv.db"))
	require.NoError(t, err)

	stores := map[string]Store{
		"memory":      NewMemoryStore(),
		"sqlite":      sqliteStore,
		"sqlite-file": fileStore,
	}
	if os.Getenv("FIRESTORE_EMULATOR_HOST") != "" {
		client, err := firestore.NewClient(context.Background(), "tonescope-test")
		require.NoError(t, err)
		stores["firestore"] = NewFirestoreStoreWithClient(client, "kv-"+HashString(t.Name())[:12])
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Get(ctx, []string{"missing"})
			require.NoError(t, err)
			assert.Empty(t, got)

			require.NoError(t, s.Set(ctx, map[string][]byte{
				"a":                          []byte("1"),
				"https://example.com/x?y=1": []byte(`{"k":true}`),
			}))

			got, err = s.Get(ctx, []string{"a", "https://example.com/x?y=1", "missing"})
			require.NoError(t, err)
			assert.Equal(t, map[string][]byte{
				"a":                          []byte("1"),
				"https://example.com/x?y=1": []byte(`{"k":true}`),
			}, got)

			require.NoError(t, s.Set(ctx, map[string][]byte{"a": []byte("2")}))
			got, err = s.Get(ctx, []string{"a"})
			require.NoError(t, err)
			assert.Equal(t, []byte("2"), got["a"])

			require.NoError(t, s.Remove(ctx, []string{"a", "never-existed"}))
			got, err = s.Get(ctx, []string{"a", "https://example.com/x?y=1"})
			require.NoError(t, err)
			assert.Len(t, got, 1)

			require.NoError(t, s.Clear(ctx))
			got, err = s.Get(ctx, []string{"a", "https://example.com/x?y=1"})
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, map[string][]byte{"analysisCache": []byte("{}")}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, []string{"analysisCache"})
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), got["analysisCache"])
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "etcd"})
	assert.Error(t, err)

	s, err := Open(context.Background(), Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
}

func TestHashStringIsStable(t *testing.T) {
	assert.Equal(t, HashString("vid123"), HashString("vid123"))
	assert.NotEqual(t, HashString("vid123"), HashString("vid124"))
	assert.Len(t, HashString("x"), 64)
}

func TestSplitValue(t *testing.T) {
	v := bytes.Repeat([]byte("ab"), 5)

	parts := splitValue(v, 4)
	require.Len(t, parts, 3)
	assert.Equal(t, []byte("abab"), parts[0])
	assert.Equal(t, []byte("ab"), parts[2])
	assert.Equal(t, v, bytes.Join(parts, nil))

	assert.Len(t, splitValue(v, 10), 1)
	assert.Len(t, splitValue(nil, 10), 1)
}

func TestPartIDsDifferByGeneration(t *testing.T) {
	assert.NotEqual(t, partID("analysisCache", 1, 0), partID("analysisCache", 2, 0))
	assert.NotEqual(t, partID("analysisCache", 1, 0), partID("analysisCache", 1, 1))
	assert.NotEqual(t, HashString("analysisCache"), partID("analysisCache", 1, 0))
}

func TestStoreLargeValues(t *testing.T) {
	ctx := context.Background()
	big := bytes.Repeat([]byte("0123456789"), 250*1024)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, map[string][]byte{"analysisCache": big}))
			got, err := s.Get(ctx, []string{"analysisCache"})
			require.NoError(t, err)
			assert.True(t, bytes.Equal(big, got["analysisCache"]))

			require.NoError(t, s.Set(ctx, map[string][]byte{"analysisCache": []byte("{}")}))
			got, err = s.Get(ctx, []string{"analysisCache"})
			require.NoError(t, err)
			assert.Equal(t, []byte("{}"), got["analysisCache"])

			if fs, ok := s.(*FirestoreStore); ok {
				refs, err := fs.client.Collection(fs.collection).DocumentRefs(ctx).GetAll()
				require.NoError(t, err)
				assert.Len(t, refs, 1, "previous parts are removed")
			}
			require.NoError(t, s.Clear(ctx))
		})
	}
}
